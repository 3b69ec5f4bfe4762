package notification

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// multicastLimit はFCMが1回のマルチキャストで受け付けるトークン数の上限。
const multicastLimit = 500

// FCMGateway はFirebase Cloud Messagingを使用したGateway実装。
type FCMGateway struct {
	client *messaging.Client
}

// FCMCredentials はFirebaseサービスアカウントの認証情報。
type FCMCredentials struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

// NewFCMGateway は認証情報からFCMクライアントを初期化する。
func NewFCMGateway(ctx context.Context, creds FCMCredentials) (*FCMGateway, error) {
	credentialsJSON, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   creds.ProjectID,
		"client_email": creds.ClientEmail,
		"private_key":  creds.PrivateKey,
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build firebase credentials: %w", err)
	}

	app, err := firebase.NewApp(ctx,
		&firebase.Config{ProjectID: creds.ProjectID},
		option.WithCredentialsJSON(credentialsJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return &FCMGateway{client: client}, nil
}

// SendMulticast はイベントを複数トークンへ送信し、成功数と失敗数を返す。
// トークンはFCMの上限に合わせて分割して送信する。
func (g *FCMGateway) SendMulticast(ctx context.Context, tokens []string, event Event) (int, int, error) {
	var success, failure int

	for start := 0; start < len(tokens); start += multicastLimit {
		end := start + multicastLimit
		if end > len(tokens) {
			end = len(tokens)
		}

		response, err := g.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: tokens[start:end],
			Data:   event.Data(),
			Notification: &messaging.Notification{
				Body: event.Body(),
			},
		})
		if err != nil {
			return success, failure + (end - start), fmt.Errorf("プッシュ通知の送信に失敗しました: %w", err)
		}

		success += response.SuccessCount
		failure += response.FailureCount
	}

	return success, failure, nil
}

// compile-time interface check
var _ Gateway = (*FCMGateway)(nil)
