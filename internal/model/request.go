// Package model はドメインモデルを定義する。
package model

import "time"

// RequestStatus は管理者申請の状態を表す。
type RequestStatus string

const (
	// RequestStatusPending は未解決の申請状態。
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusAccepted は承認された申請状態。
	RequestStatusAccepted RequestStatus = "accepted"
	// RequestStatusRejected は却下された申請状態。
	RequestStatusRejected RequestStatus = "rejected"
)

// IsValid は既知の申請状態かどうかを返す。
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusRejected:
		return true
	}
	return false
}

// AdminRequest はマーカーの管理者になるためのユーザー申請を表す。
// pendingからaccepted/rejectedへの遷移は1回限りで不可逆。行は削除されない。
type AdminRequest struct {
	ID        string
	MarkerID  string
	UserID    string
	Status    RequestStatus
	CreatedAt time.Time
}

// AdminRequestView は所有者向けの申請一覧の1行を表す。
// 申請者のユーザーレコード全体ではなく表示名のみを含める。
type AdminRequestView struct {
	ID        string
	Status    RequestStatus
	UserName  string
	CreatedAt time.Time
}

// Request はマーカーに対する物資リクエスト（例:「野菜が必要です」）を表す。
// 作成後は読み取り専用で、期限切れ分は読み取り時に除外される。
type Request struct {
	ID          string
	Description string
	MarkerID    string
	UserID      string
	Notifiable  bool
	ExpiresAt   *time.Time // nilは無期限
	CreatedAt   time.Time

	// User はJOINで取得した投稿者の公開プロフィール。
	User *Profile
}

// Subscription はユーザーのマーカー購読を表す。
// (user_id, marker_id)で一意。CreatedAtが「購読開始日」を兼ねる。
type Subscription struct {
	ID        string
	MarkerID  string
	UserID    string
	CreatedAt time.Time
}

// Notification はリクエスト通知のファンアウト記録を表す。
// プッシュ配信とは独立に、誰に通知すべきだったかの永続的な記録として残る。
type Notification struct {
	ID        string
	RequestID string
	UserID    string
	Type      NotificationType
	CreatedAt time.Time
}

// NotificationType は通知の配信チャネル種別を表す。
type NotificationType string

const (
	// NotificationTypePush はプッシュ通知チャネル。
	NotificationTypePush NotificationType = "push_notification"
)
