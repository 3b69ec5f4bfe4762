package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/ollamap/internal/metrics"
	"github.com/hitoshi/ollamap/internal/repository"
)

// Sender はサービス層から見たプッシュ通知送信のインターフェース。
type Sender interface {
	// Send はイベントを指定ユーザーの全端末へ送信する。
	// 配信失敗はログに記録して握りつぶし、呼び出し元には伝播させない。
	Send(ctx context.Context, userIDs []string, event Event)
}

// Notifier はユーザーIDを端末トークンへ解決し、Gateway経由で配信するSender実装。
type Notifier struct {
	users     repository.UserRepository
	gateway   Gateway
	logger    *slog.Logger
	collector metrics.MetricsCollector
}

// NewNotifier はNotifierを生成する。
func NewNotifier(users repository.UserRepository, gateway Gateway, logger *slog.Logger, collector metrics.MetricsCollector) *Notifier {
	return &Notifier{
		users:     users,
		gateway:   gateway,
		logger:    logger,
		collector: collector,
	}
}

// Send はイベントを指定ユーザーの全端末へ送信する。
// 通知はベストエフォートであり、失敗しても業務処理は成立させる。
func (n *Notifier) Send(ctx context.Context, userIDs []string, event Event) {
	if len(userIDs) == 0 {
		return
	}

	users, err := n.users.FindManyWithDevices(ctx, userIDs)
	if err != nil {
		n.logger.Error("ERROR_SENDING_NOTIFICATION",
			"type", event.Type(),
			"error", err,
		)
		return
	}

	var tokens []string
	for _, user := range users {
		tokens = append(tokens, user.DeviceTokens()...)
	}

	if len(tokens) == 0 {
		return
	}

	start := time.Now()
	success, failure, err := n.gateway.SendMulticast(ctx, tokens, event)
	n.collector.RecordPushLatency(time.Since(start))
	n.collector.RecordPushSent(success)
	n.collector.RecordPushFailed(failure)

	if err != nil {
		n.logger.Error("ERROR_SENDING_NOTIFICATION",
			"type", event.Type(),
			"tokens", len(tokens),
			"error", err,
		)
		return
	}

	n.logger.Info("push notification sent",
		"type", event.Type(),
		"success", success,
		"failure", failure,
	)
}

// compile-time interface check
var _ Sender = (*Notifier)(nil)
