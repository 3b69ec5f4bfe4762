package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/ollamap/internal/model"
)

// PostgresRequestRepo はPostgreSQLを使用した物資リクエストリポジトリ。
type PostgresRequestRepo struct {
	db *sql.DB
}

// NewPostgresRequestRepo はPostgresRequestRepoを生成する。
func NewPostgresRequestRepo(db *sql.DB) *PostgresRequestRepo {
	return &PostgresRequestRepo{db: db}
}

// CreateWithNotifications はリクエスト作成と購読者ごとの通知レコード作成を
// 同一トランザクションで実行する。notificationsが空の場合はリクエストのみ作成する。
func (r *PostgresRequestRepo) CreateWithNotifications(ctx context.Context, request *model.Request, notifications []*model.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO requests (id, description, marker_id, user_id, notifiable, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		request.ID, request.Description, request.MarkerID, request.UserID,
		request.Notifiable, request.ExpiresAt, request.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}

	for _, notification := range notifications {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO notifications (id, request_id, user_id, type, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			notification.ID, notification.RequestID, notification.UserID,
			notification.Type, notification.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListActiveByMarkerWithUser はマーカーの有効なリクエスト一覧を
// 投稿者の公開プロフィール付きで返す。
func (r *PostgresRequestRepo) ListActiveByMarkerWithUser(ctx context.Context, markerID string, now time.Time) ([]*model.Request, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.description, r.marker_id, r.user_id, r.notifiable, r.expires_at, r.created_at,
		        u.name, u.email
		 FROM requests r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.marker_id = $1 AND (r.expires_at IS NULL OR r.expires_at > $2)
		 ORDER BY r.created_at ASC`,
		markerID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("リクエスト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var requests []*model.Request
	for rows.Next() {
		request := &model.Request{User: &model.Profile{}}
		if err := rows.Scan(
			&request.ID, &request.Description, &request.MarkerID, &request.UserID,
			&request.Notifiable, &request.ExpiresAt, &request.CreatedAt,
			&request.User.Name, &request.User.Email,
		); err != nil {
			return nil, fmt.Errorf("リクエスト行の読み取りに失敗しました: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リクエスト一覧の走査に失敗しました: %w", err)
	}
	return requests, nil
}

// compile-time interface check
var _ RequestRepository = (*PostgresRequestRepo)(nil)
