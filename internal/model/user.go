// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Passwordはbcryptハッシュで、公開プロフィールには決して含めない。
type User struct {
	ID        string
	Email     string
	Name      string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Devices はJOINで取得したプッシュ通知先デバイス。
	// 通知ファンアウトの文脈でのみロードされる。
	Devices []Device
}

// Profile はユーザーの公開プロフィール。APIから外部に返すのはこの形のみ。
type Profile struct {
	Email string
	Name  string
}

// ToProfile はユーザーから公開プロフィールを生成する。
func (u *User) ToProfile() Profile {
	return Profile{
		Email: u.Email,
		Name:  u.Name,
	}
}

// DeviceTokens はユーザーの全デバイストークンを返す。デバイス未登録なら空。
func (u *User) DeviceTokens() []string {
	tokens := make([]string, 0, len(u.Devices))
	for _, device := range u.Devices {
		tokens = append(tokens, device.Token)
	}
	return tokens
}

// Platform はデバイスのプラットフォーム種別を表す。
type Platform string

const (
	// PlatformAndroid はAndroid端末。
	PlatformAndroid Platform = "android"
	// PlatformIOS はiOS端末。
	PlatformIOS Platform = "ios"
)

// Device はユーザーに紐づくプッシュ通知エンドポイントを表す。
// DeviceIDはクライアント側で生成する端末識別子、TokenはFCMの登録トークン。
type Device struct {
	ID        string
	DeviceID  string
	Platform  Platform
	Token     string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
