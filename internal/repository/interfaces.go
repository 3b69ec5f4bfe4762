// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/ollamap/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// FindManyWithDevices は指定IDのユーザー群をデバイス付きで取得する。
	// 通知ファンアウトのトークン解決に使用する。存在しないIDは結果から除外される。
	FindManyWithDevices(ctx context.Context, ids []string) ([]*model.User, error)
}

// CategoryRepository はカテゴリ（静的な参照データ）の永続化インターフェース。
type CategoryRepository interface {
	// FindByName は名前でカテゴリを検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Category, error)

	// List は全カテゴリを返す。
	List(ctx context.Context) ([]*model.Category, error)

	// Create はカテゴリを作成する。シード処理でのみ使用する。
	Create(ctx context.Context, category *model.Category) error
}

// MarkerRepository はマーカーデータの永続化インターフェース。
type MarkerRepository interface {
	// FindByID は指定IDのマーカーをカテゴリ付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Marker, error)

	// ListActive は有効なマーカー（expires_atがNULLまたは未来）をカテゴリ付きで返す。
	ListActive(ctx context.Context, now time.Time) ([]*model.Marker, error)

	// ListByOwner は指定ユーザーが所有するマーカーをカテゴリ付きで返す。
	ListByOwner(ctx context.Context, userID string) ([]*model.Marker, error)

	// Create はマーカーを作成する。
	Create(ctx context.Context, marker *model.Marker) error

	// UpdateExpiration はマーカーの有効期限を更新する。
	UpdateExpiration(ctx context.Context, id string, expiresAt *time.Time) error

	// Delete は指定IDのマーカーを物理削除する。
	Delete(ctx context.Context, id string) error
}

// SubscriptionWithMarker は購読とマーカー（カテゴリ付き）を結合した構造体。
type SubscriptionWithMarker struct {
	model.Subscription
	Marker model.Marker
}

// SubscriptionRepository は購読データの永続化インターフェース。
// 重複購読はアプリ層の事前チェックに加えて(user_id, marker_id)の
// UNIQUE制約で防止される。
type SubscriptionRepository interface {
	// FindByUserAndMarker はユーザーIDとマーカーIDで購読を検索する。見つからない場合はnilを返す。
	FindByUserAndMarker(ctx context.Context, userID, markerID string) (*model.Subscription, error)

	// Create は購読を作成する。
	Create(ctx context.Context, subscription *model.Subscription) error

	// DeleteByUserAndMarker は指定の(ユーザー, マーカー)の購読を削除する。
	DeleteByUserAndMarker(ctx context.Context, userID, markerID string) error

	// ListUserIDsByMarker はマーカーの購読者のユーザーIDを返す。
	ListUserIDsByMarker(ctx context.Context, markerID string) ([]string, error)

	// ListByUserWithMarker はユーザーの購読一覧をマーカー（カテゴリ付き）と結合して返す。
	ListByUserWithMarker(ctx context.Context, userID string) ([]SubscriptionWithMarker, error)
}

// AdminRequestRepository は管理者申請の永続化インターフェース。
// 申請行は解決後も監査記録として残り、削除されない。
type AdminRequestRepository interface {
	// FindByID は指定IDの申請を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.AdminRequest, error)

	// FindByUserAndMarker はユーザーIDとマーカーIDで申請を検索する。見つからない場合はnilを返す。
	FindByUserAndMarker(ctx context.Context, userID, markerID string) (*model.AdminRequest, error)

	// Create は申請を作成する。
	Create(ctx context.Context, request *model.AdminRequest) error

	// ListByMarkerWithUserName はマーカーの申請一覧を申請者の表示名付きで返す。
	ListByMarkerWithUserName(ctx context.Context, markerID string) ([]model.AdminRequestView, error)

	// CreateAcceptedWithOwnership は無所有マーカーの即時取得を行う。
	// accepted状態の申請作成とowners = [userID]の設定を同一トランザクションで実行する。
	CreateAcceptedWithOwnership(ctx context.Context, request *model.AdminRequest) error

	// Resolve は申請の解決を同一トランザクションで実行する。
	// statusの更新、acceptedの場合のowners追加、removeSubscriptionが真の場合の購読削除を
	// すべて成功させるか、すべて取り消す。
	Resolve(ctx context.Context, requestID string, status model.RequestStatus, markerID, userID string, removeSubscription bool) error
}

// RequestRepository は物資リクエストの永続化インターフェース。
type RequestRepository interface {
	// CreateWithNotifications はリクエスト作成と購読者ごとの通知レコード作成を
	// 同一トランザクションで実行する。notificationsが空の場合はリクエストのみ作成する。
	CreateWithNotifications(ctx context.Context, request *model.Request, notifications []*model.Notification) error

	// ListActiveByMarkerWithUser はマーカーの有効なリクエスト一覧を
	// 投稿者の公開プロフィール付きで返す。
	ListActiveByMarkerWithUser(ctx context.Context, markerID string, now time.Time) ([]*model.Request, error)
}

// DeviceRepository はプッシュ通知デバイスの永続化インターフェース。
type DeviceRepository interface {
	// FindByDeviceID は端末識別子でデバイスを検索する。見つからない場合はnilを返す。
	FindByDeviceID(ctx context.Context, deviceID string) (*model.Device, error)

	// FindByUserAndDeviceID はユーザーIDと端末識別子でデバイスを検索する。見つからない場合はnilを返す。
	FindByUserAndDeviceID(ctx context.Context, userID, deviceID string) (*model.Device, error)

	// Create はデバイスを作成する。
	Create(ctx context.Context, device *model.Device) error

	// Update はデバイスのトークン・プラットフォーム・所有ユーザーを更新する。
	Update(ctx context.Context, device *model.Device) error

	// DeleteByDeviceID は端末識別子でデバイスを削除する。
	DeleteByDeviceID(ctx context.Context, deviceID string) error
}
