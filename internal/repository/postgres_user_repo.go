package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/ollamap/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password, created_at, updated_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Password, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password, created_at, updated_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Password, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, user.Password, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// FindManyWithDevices は指定IDのユーザー群をデバイス付きで取得する。
// 存在しないIDは結果から除外される。idsが空の場合は空のスライスを返す。
func (r *PostgresUserRepo) FindManyWithDevices(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.name, u.password, u.created_at, u.updated_at,
		        d.id, d.device_id, d.platform, d.token, d.user_id, d.created_at, d.updated_at
		 FROM users u
		 LEFT JOIN devices d ON d.user_id = u.id
		 WHERE u.id = ANY ($1)
		 ORDER BY u.id, d.created_at`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザーとデバイスの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	byID := map[string]*model.User{}
	for rows.Next() {
		user := &model.User{}
		var (
			deviceID   sql.NullString
			deviceDID  sql.NullString
			platform   sql.NullString
			token      sql.NullString
			deviceUser sql.NullString
			createdAt  sql.NullTime
			updatedAt  sql.NullTime
		)
		if err := rows.Scan(
			&user.ID, &user.Email, &user.Name, &user.Password, &user.CreatedAt, &user.UpdatedAt,
			&deviceID, &deviceDID, &platform, &token, &deviceUser, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("ユーザー行の読み取りに失敗しました: %w", err)
		}

		existing, ok := byID[user.ID]
		if !ok {
			existing = user
			byID[user.ID] = user
			users = append(users, user)
		}

		// LEFT JOINのためデバイスなしの行はNULLになる
		if deviceID.Valid {
			existing.Devices = append(existing.Devices, model.Device{
				ID:        deviceID.String,
				DeviceID:  deviceDID.String,
				Platform:  model.Platform(platform.String),
				Token:     token.String,
				UserID:    deviceUser.String,
				CreatedAt: createdAt.Time,
				UpdatedAt: updatedAt.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザー一覧の走査に失敗しました: %w", err)
	}

	return users, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
