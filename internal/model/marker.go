// Package model はドメインモデルを定義する。
package model

import "time"

// Marker は地図上の定期イベント（配食・おすそ分けの場所）を表す。
// OwnersはマーカーをAdministrationできるユーザーIDの集合で、
// 空の場合は未所有（誰でも最初の申請で所有権を獲得できる）を意味する。
type Marker struct {
	ID          string
	CategoryID  string
	Description string
	Duration    int // 分単位
	Latitude    float64
	Longitude   float64
	Name        string
	Owners      []string
	Recurrence  string // iCalendar RRULE文字列
	TimeZone    string
	ExpiresAt   *time.Time // nilは無期限
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Category はJOINで取得したカテゴリ。参照のみの文脈ではnil。
	Category *Category
}

// IsExpired はマーカーが期限切れかどうかを返す。
// ExpiresAtがnilのマーカーは期限切れにならない。
func (m *Marker) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// IsOwner は指定ユーザーがマーカーの所有者かどうかを返す。
func (m *Marker) IsOwner(userID string) bool {
	for _, owner := range m.Owners {
		if owner == userID {
			return true
		}
	}
	return false
}

// Category はマーカーの分類を表す。シードでのみ作成される静的な参照データ。
type Category struct {
	ID          string
	Name        string
	Description string
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
