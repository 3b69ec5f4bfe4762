package notification

import (
	"context"
	"log/slog"
)

// Gateway はプッシュ通知配信基盤へのインターフェース。
type Gateway interface {
	// SendMulticast はイベントを複数トークンへ一括送信し、成功数と失敗数を返す。
	SendMulticast(ctx context.Context, tokens []string, event Event) (success, failure int, err error)
}

// LoggingGateway は実際には送信せずログに記録するGateway実装。
// 認証情報のない開発環境で使用する。
type LoggingGateway struct {
	logger *slog.Logger
}

// NewLoggingGateway はLoggingGatewayを生成する。
func NewLoggingGateway(logger *slog.Logger) *LoggingGateway {
	return &LoggingGateway{logger: logger}
}

// SendMulticast は送信内容をログに記録し、全件成功として扱う。
func (g *LoggingGateway) SendMulticast(ctx context.Context, tokens []string, event Event) (int, int, error) {
	g.logger.Info("push notification skipped (logging gateway)",
		"type", event.Type(),
		"body", event.Body(),
		"tokens", len(tokens),
	)
	return len(tokens), 0, nil
}

// compile-time interface check
var _ Gateway = (*LoggingGateway)(nil)
