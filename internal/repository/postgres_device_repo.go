package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ollamap/internal/model"
)

// PostgresDeviceRepo はPostgreSQLを使用したデバイスリポジトリ。
type PostgresDeviceRepo struct {
	db *sql.DB
}

// NewPostgresDeviceRepo はPostgresDeviceRepoを生成する。
func NewPostgresDeviceRepo(db *sql.DB) *PostgresDeviceRepo {
	return &PostgresDeviceRepo{db: db}
}

// scanDevice は1行からデバイスを読み取る。
func scanDevice(scan func(dest ...any) error) (*model.Device, error) {
	device := &model.Device{}
	err := scan(
		&device.ID, &device.DeviceID, &device.Platform, &device.Token,
		&device.UserID, &device.CreatedAt, &device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return device, nil
}

// FindByDeviceID は端末識別子でデバイスを検索する。見つからない場合はnilを返す。
func (r *PostgresDeviceRepo) FindByDeviceID(ctx context.Context, deviceID string) (*model.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, device_id, platform, token, user_id, created_at, updated_at
		 FROM devices WHERE device_id = $1`,
		deviceID,
	)

	device, err := scanDevice(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("デバイスの検索に失敗しました: %w", err)
	}

	return device, nil
}

// FindByUserAndDeviceID はユーザーIDと端末識別子でデバイスを検索する。見つからない場合はnilを返す。
func (r *PostgresDeviceRepo) FindByUserAndDeviceID(ctx context.Context, userID, deviceID string) (*model.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, device_id, platform, token, user_id, created_at, updated_at
		 FROM devices WHERE user_id = $1 AND device_id = $2`,
		userID, deviceID,
	)

	device, err := scanDevice(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("デバイスの検索に失敗しました: %w", err)
	}

	return device, nil
}

// Create はデバイスを作成する。
func (r *PostgresDeviceRepo) Create(ctx context.Context, device *model.Device) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, device_id, platform, token, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		device.ID, device.DeviceID, device.Platform, device.Token,
		device.UserID, device.CreatedAt, device.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("デバイスの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はデバイスのトークン・プラットフォーム・所有ユーザーを更新する。
// 端末の持ち主が変わった場合（アプリの入れ直し等）もここで付け替える。
func (r *PostgresDeviceRepo) Update(ctx context.Context, device *model.Device) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET platform = $2, token = $3, user_id = $4, updated_at = now()
		 WHERE device_id = $1`,
		device.DeviceID, device.Platform, device.Token, device.UserID,
	)
	if err != nil {
		return fmt.Errorf("デバイスの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("device not found: %s", device.DeviceID)
	}
	return nil
}

// DeleteByDeviceID は端末識別子でデバイスを削除する。
func (r *PostgresDeviceRepo) DeleteByDeviceID(ctx context.Context, deviceID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM devices WHERE device_id = $1`,
		deviceID,
	)
	if err != nil {
		return fmt.Errorf("デバイスの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("device not found: %s", deviceID)
	}
	return nil
}

// compile-time interface check
var _ DeviceRepository = (*PostgresDeviceRepo)(nil)
