// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層と通知層から利用する。
type MetricsCollector interface {
	RecordMarkerCreated(categoryName string)
	RecordMarkerConfirmed()
	RecordMarkerExpired(reason string)
	RecordMarkerReported()
	RecordAdminRequest(outcome string)
	RecordItemRequest()
	RecordSubscription(action string)
	RecordPushSent(count int)
	RecordPushFailed(count int)
	RecordPushLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	markerCreated   *prometheus.CounterVec
	markerConfirmed prometheus.Counter
	markerExpired   *prometheus.CounterVec
	markerReported  prometheus.Counter
	adminRequest    *prometheus.CounterVec
	itemRequest     prometheus.Counter
	subscription    *prometheus.CounterVec
	pushSent        prometheus.Counter
	pushFailed      prometheus.Counter
	pushLatency     prometheus.Histogram
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		markerCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ollamap_marker_created_total",
			Help: "カテゴリ別のマーカー作成数",
		}, []string{"category"}),
		markerConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ollamap_marker_confirmed_total",
			Help: "マーカー確認の合計数",
		}),
		markerExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ollamap_marker_expired_total",
			Help: "失効理由別のマーカー失効数",
		}, []string{"reason"}),
		markerReported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ollamap_marker_reported_total",
			Help: "マーカー通報の合計数",
		}),
		adminRequest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ollamap_admin_request_total",
			Help: "結果別の管理者リクエスト数",
		}, []string{"outcome"}),
		itemRequest: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ollamap_item_request_total",
			Help: "物資リクエスト作成の合計数",
		}),
		subscription: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ollamap_subscription_total",
			Help: "操作別の購読操作数",
		}, []string{"action"}),
		pushSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ollamap_push_sent_total",
			Help: "送信に成功したプッシュ通知の合計数",
		}),
		pushFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ollamap_push_failed_total",
			Help: "送信に失敗したプッシュ通知の合計数",
		}),
		pushLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ollamap_push_latency_seconds",
			Help:    "プッシュ通知送信のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ollamap_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.markerCreated,
		c.markerConfirmed,
		c.markerExpired,
		c.markerReported,
		c.adminRequest,
		c.itemRequest,
		c.subscription,
		c.pushSent,
		c.pushFailed,
		c.pushLatency,
		c.httpStatus,
	)

	return c
}

// RecordMarkerCreated はマーカー作成を記録する。
func (c *Collector) RecordMarkerCreated(categoryName string) {
	c.markerCreated.WithLabelValues(categoryName).Inc()
}

// RecordMarkerConfirmed はマーカー確認を記録する。
func (c *Collector) RecordMarkerConfirmed() {
	c.markerConfirmed.Inc()
}

// RecordMarkerExpired はマーカー失効を理由付きで記録する。
// reasonは "owner" または "reports"。
func (c *Collector) RecordMarkerExpired(reason string) {
	c.markerExpired.WithLabelValues(reason).Inc()
}

// RecordMarkerReported はマーカー通報を記録する。
func (c *Collector) RecordMarkerReported() {
	c.markerReported.Inc()
}

// RecordAdminRequest は管理者リクエストの結果を記録する。
// outcomeは "pending" / "auto_accepted" / "accepted" / "rejected"。
func (c *Collector) RecordAdminRequest(outcome string) {
	c.adminRequest.WithLabelValues(outcome).Inc()
}

// RecordItemRequest は物資リクエスト作成を記録する。
func (c *Collector) RecordItemRequest() {
	c.itemRequest.Inc()
}

// RecordSubscription は購読操作を記録する。actionは "subscribe" / "unsubscribe"。
func (c *Collector) RecordSubscription(action string) {
	c.subscription.WithLabelValues(action).Inc()
}

// RecordPushSent は送信に成功したプッシュ通知数を記録する。
func (c *Collector) RecordPushSent(count int) {
	c.pushSent.Add(float64(count))
}

// RecordPushFailed は送信に失敗したプッシュ通知数を記録する。
func (c *Collector) RecordPushFailed(count int) {
	c.pushFailed.Add(float64(count))
}

// RecordPushLatency はプッシュ通知送信のレイテンシを記録する。
func (c *Collector) RecordPushLatency(duration time.Duration) {
	c.pushLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector実装。テスト用。
type NopCollector struct{}

func (NopCollector) RecordMarkerCreated(categoryName string)  {}
func (NopCollector) RecordMarkerConfirmed()                   {}
func (NopCollector) RecordMarkerExpired(reason string)        {}
func (NopCollector) RecordMarkerReported()                    {}
func (NopCollector) RecordAdminRequest(outcome string)        {}
func (NopCollector) RecordItemRequest()                       {}
func (NopCollector) RecordSubscription(action string)         {}
func (NopCollector) RecordPushSent(count int)                 {}
func (NopCollector) RecordPushFailed(count int)               {}
func (NopCollector) RecordPushLatency(duration time.Duration) {}
func (NopCollector) RecordHTTPStatus(statusCode int)          {}

// compile-time interface checks
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
