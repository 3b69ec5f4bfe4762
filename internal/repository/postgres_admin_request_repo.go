package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ollamap/internal/model"
)

// PostgresAdminRequestRepo はPostgreSQLを使用した管理者申請リポジトリ。
type PostgresAdminRequestRepo struct {
	db *sql.DB
}

// NewPostgresAdminRequestRepo はPostgresAdminRequestRepoを生成する。
func NewPostgresAdminRequestRepo(db *sql.DB) *PostgresAdminRequestRepo {
	return &PostgresAdminRequestRepo{db: db}
}

// FindByID は指定IDの申請を取得する。見つからない場合はnilを返す。
func (r *PostgresAdminRequestRepo) FindByID(ctx context.Context, id string) (*model.AdminRequest, error) {
	request := &model.AdminRequest{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, marker_id, user_id, status, created_at
		 FROM administrator_requests WHERE id = $1`,
		id,
	).Scan(&request.ID, &request.MarkerID, &request.UserID, &request.Status, &request.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("管理者申請の取得に失敗しました: %w", err)
	}

	return request, nil
}

// FindByUserAndMarker はユーザーIDとマーカーIDで申請を検索する。見つからない場合はnilを返す。
func (r *PostgresAdminRequestRepo) FindByUserAndMarker(ctx context.Context, userID, markerID string) (*model.AdminRequest, error) {
	request := &model.AdminRequest{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, marker_id, user_id, status, created_at
		 FROM administrator_requests WHERE user_id = $1 AND marker_id = $2`,
		userID, markerID,
	).Scan(&request.ID, &request.MarkerID, &request.UserID, &request.Status, &request.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("管理者申請の検索に失敗しました: %w", err)
	}

	return request, nil
}

// Create は申請を作成する。
func (r *PostgresAdminRequestRepo) Create(ctx context.Context, request *model.AdminRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO administrator_requests (id, marker_id, user_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		request.ID, request.MarkerID, request.UserID, request.Status, request.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("管理者申請の作成に失敗しました: %w", err)
	}
	return nil
}

// ListByMarkerWithUserName はマーカーの申請一覧を申請者の表示名付きで返す。
func (r *PostgresAdminRequestRepo) ListByMarkerWithUserName(ctx context.Context, markerID string) ([]model.AdminRequestView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.status, u.name, a.created_at
		 FROM administrator_requests a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.marker_id = $1
		 ORDER BY a.created_at ASC`,
		markerID,
	)
	if err != nil {
		return nil, fmt.Errorf("管理者申請一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var views []model.AdminRequestView
	for rows.Next() {
		var view model.AdminRequestView
		if err := rows.Scan(&view.ID, &view.Status, &view.UserName, &view.CreatedAt); err != nil {
			return nil, fmt.Errorf("管理者申請行の読み取りに失敗しました: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("管理者申請一覧の走査に失敗しました: %w", err)
	}
	return views, nil
}

// CreateAcceptedWithOwnership は無所有マーカーの即時取得を行う。
// accepted状態の申請作成とowners = [userID]の設定を同一トランザクションで実行する。
func (r *PostgresAdminRequestRepo) CreateAcceptedWithOwnership(ctx context.Context, request *model.AdminRequest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 申請を監査記録としてaccepted状態で作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO administrator_requests (id, marker_id, user_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		request.ID, request.MarkerID, request.UserID, request.Status, request.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert administrator request: %w", err)
	}

	// 最初の申請者が所有権を獲得する
	_, err = tx.ExecContext(ctx,
		`UPDATE markers SET owners = ARRAY[$2], updated_at = now() WHERE id = $1`,
		request.MarkerID, request.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to set marker owners: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Resolve は申請の解決を同一トランザクションで実行する。
// statusの更新、acceptedの場合のowners追加、removeSubscriptionが真の場合の
// 購読削除をすべて成功させるか、すべて取り消す。
func (r *PostgresAdminRequestRepo) Resolve(ctx context.Context, requestID string, status model.RequestStatus, markerID, userID string, removeSubscription bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE administrator_requests SET status = $2 WHERE id = $1`,
		requestID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update administrator request: %w", err)
	}

	if status == model.RequestStatusAccepted {
		_, err = tx.ExecContext(ctx,
			`UPDATE markers SET owners = array_append(owners, $2), updated_at = now() WHERE id = $1`,
			markerID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to append marker owner: %w", err)
		}
	}

	// 管理者になった時点で購読は不要になる
	if removeSubscription {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM subscriptions WHERE user_id = $1 AND marker_id = $2`,
			userID, markerID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ AdminRequestRepository = (*PostgresAdminRequestRepo)(nil)
