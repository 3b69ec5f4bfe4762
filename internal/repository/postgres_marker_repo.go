package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/ollamap/internal/model"
)

// markerColumns はマーカーとカテゴリのJOINで取得する列の並び。
const markerColumns = `
	m.id, m.category_id, m.description, m.duration, m.latitude, m.longitude,
	m.name, m.owners, m.recurrence, m.time_zone, m.expires_at, m.created_at, m.updated_at,
	c.id, c.name, c.description, c.color, c.created_at, c.updated_at`

// PostgresMarkerRepo はPostgreSQLを使用したマーカーリポジトリ。
type PostgresMarkerRepo struct {
	db *sql.DB
}

// NewPostgresMarkerRepo はPostgresMarkerRepoを生成する。
func NewPostgresMarkerRepo(db *sql.DB) *PostgresMarkerRepo {
	return &PostgresMarkerRepo{db: db}
}

// scanMarker は1行からマーカー（カテゴリ付き）を読み取る。
func scanMarker(scan func(dest ...any) error) (*model.Marker, error) {
	marker := &model.Marker{Category: &model.Category{}}
	err := scan(
		&marker.ID, &marker.CategoryID, &marker.Description, &marker.Duration,
		&marker.Latitude, &marker.Longitude, &marker.Name, pq.Array(&marker.Owners),
		&marker.Recurrence, &marker.TimeZone, &marker.ExpiresAt, &marker.CreatedAt, &marker.UpdatedAt,
		&marker.Category.ID, &marker.Category.Name, &marker.Category.Description,
		&marker.Category.Color, &marker.Category.CreatedAt, &marker.Category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return marker, nil
}

// FindByID は指定IDのマーカーをカテゴリ付きで取得する。見つからない場合はnilを返す。
func (r *PostgresMarkerRepo) FindByID(ctx context.Context, id string) (*model.Marker, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+markerColumns+`
		 FROM markers m JOIN categories c ON c.id = m.category_id
		 WHERE m.id = $1`,
		id,
	)

	marker, err := scanMarker(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("マーカーの取得に失敗しました: %w", err)
	}

	return marker, nil
}

// ListActive は有効なマーカー（expires_atがNULLまたは未来）をカテゴリ付きで返す。
func (r *PostgresMarkerRepo) ListActive(ctx context.Context, now time.Time) ([]*model.Marker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+markerColumns+`
		 FROM markers m JOIN categories c ON c.id = m.category_id
		 WHERE m.expires_at IS NULL OR m.expires_at > $1
		 ORDER BY m.created_at ASC`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("マーカー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectMarkers(rows)
}

// ListByOwner は指定ユーザーが所有するマーカーをカテゴリ付きで返す。
func (r *PostgresMarkerRepo) ListByOwner(ctx context.Context, userID string) ([]*model.Marker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+markerColumns+`
		 FROM markers m JOIN categories c ON c.id = m.category_id
		 WHERE $1 = ANY (m.owners)
		 ORDER BY m.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("所有マーカー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectMarkers(rows)
}

// collectMarkers はクエリ結果の全行をマーカーとして読み取る。
func collectMarkers(rows *sql.Rows) ([]*model.Marker, error) {
	var markers []*model.Marker
	for rows.Next() {
		marker, err := scanMarker(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("マーカー行の読み取りに失敗しました: %w", err)
		}
		markers = append(markers, marker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("マーカー一覧の走査に失敗しました: %w", err)
	}
	return markers, nil
}

// Create はマーカーを作成する。
func (r *PostgresMarkerRepo) Create(ctx context.Context, marker *model.Marker) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO markers
		 (id, category_id, description, duration, latitude, longitude, name, owners,
		  recurrence, time_zone, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		marker.ID, marker.CategoryID, marker.Description, marker.Duration,
		marker.Latitude, marker.Longitude, marker.Name, pq.Array(marker.Owners),
		marker.Recurrence, marker.TimeZone, marker.ExpiresAt, marker.CreatedAt, marker.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("マーカーの作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateExpiration はマーカーの有効期限を更新する。
func (r *PostgresMarkerRepo) UpdateExpiration(ctx context.Context, id string, expiresAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE markers SET expires_at = $2, updated_at = now() WHERE id = $1`,
		id, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("マーカーの有効期限更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("marker not found: %s", id)
	}
	return nil
}

// Delete は指定IDのマーカーを物理削除する。
// 関連するadministrator_requests、subscriptions、requestsはCASCADE削除される。
func (r *PostgresMarkerRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM markers WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("マーカーの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("marker not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ MarkerRepository = (*PostgresMarkerRepo)(nil)
