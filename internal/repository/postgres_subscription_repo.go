package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/ollamap/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// FindByUserAndMarker はユーザーIDとマーカーIDで購読を検索する。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindByUserAndMarker(ctx context.Context, userID, markerID string) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, marker_id, user_id, created_at
		 FROM subscriptions WHERE user_id = $1 AND marker_id = $2`,
		userID, markerID,
	).Scan(&sub.ID, &sub.MarkerID, &sub.UserID, &sub.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読の検索に失敗しました: %w", err)
	}

	return sub, nil
}

// Create は購読を作成する。
// (user_id, marker_id)のUNIQUE制約により、並行する購読操作の競合はここで弾かれる。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, marker_id, user_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		sub.ID, sub.MarkerID, sub.UserID, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}
	return nil
}

// DeleteByUserAndMarker は指定の(ユーザー, マーカー)の購読を削除する。
// 対象が存在しない場合もエラーにしない。
func (r *PostgresSubscriptionRepo) DeleteByUserAndMarker(ctx context.Context, userID, markerID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = $1 AND marker_id = $2`,
		userID, markerID,
	)
	if err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	return nil
}

// ListUserIDsByMarker はマーカーの購読者のユーザーIDを返す。
func (r *PostgresSubscriptionRepo) ListUserIDsByMarker(ctx context.Context, markerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM subscriptions WHERE marker_id = $1 ORDER BY created_at ASC`,
		markerID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読者一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("購読者行の読み取りに失敗しました: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読者一覧の走査に失敗しました: %w", err)
	}
	return userIDs, nil
}

// ListByUserWithMarker はユーザーの購読一覧をマーカー（カテゴリ付き）と結合して返す。
func (r *PostgresSubscriptionRepo) ListByUserWithMarker(ctx context.Context, userID string) ([]SubscriptionWithMarker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.marker_id, s.user_id, s.created_at,`+markerColumns+`
		 FROM subscriptions s
		 JOIN markers m ON m.id = s.marker_id
		 JOIN categories c ON c.id = m.category_id
		 WHERE s.user_id = $1
		 ORDER BY s.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []SubscriptionWithMarker
	for rows.Next() {
		row := SubscriptionWithMarker{Marker: model.Marker{Category: &model.Category{}}}
		marker := &row.Marker
		if err := rows.Scan(
			&row.ID, &row.MarkerID, &row.UserID, &row.CreatedAt,
			&marker.ID, &marker.CategoryID, &marker.Description, &marker.Duration,
			&marker.Latitude, &marker.Longitude, &marker.Name, pq.Array(&marker.Owners),
			&marker.Recurrence, &marker.TimeZone, &marker.ExpiresAt, &marker.CreatedAt, &marker.UpdatedAt,
			&marker.Category.ID, &marker.Category.Name, &marker.Category.Description,
			&marker.Category.Color, &marker.Category.CreatedAt, &marker.Category.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("購読行の読み取りに失敗しました: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読一覧の走査に失敗しました: %w", err)
	}
	return results, nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
