package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_RegistersMetrics はCollectorが全メトリクスをレジストリに登録することを検証する。
func TestNewCollector_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMarkerCreated("Olla Popular")
	c.RecordMarkerConfirmed()
	c.RecordMarkerExpired("reports")
	c.RecordMarkerReported()
	c.RecordAdminRequest("auto_accepted")
	c.RecordItemRequest()
	c.RecordSubscription("subscribe")
	c.RecordPushSent(3)
	c.RecordPushFailed(1)
	c.RecordHTTPStatus(200)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

// TestHandler_ServesMetrics はスクレイプハンドラーがメトリクスを返すことを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordMarkerConfirmed()

	handler := Handler(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "ollamap_marker_confirmed_total") {
		t.Error("response should contain ollamap_marker_confirmed_total metric")
	}
}
