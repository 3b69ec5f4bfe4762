// Package cache は通報カウンタ・冪等フラグ用のTTL付きキー/バリューストアを提供する。
// 一次データは保存しない。キーはすべてプレフィックス付きで、TTL経過後に自動消滅する。
package cache

import (
	"context"
	"time"
)

// KeyPrefix はキャッシュキーのプレフィックスを表す。
type KeyPrefix string

const (
	// KeyPrefixMarkerReportsAmount はマーカーごとの通報数カウンタのプレフィックス。
	KeyPrefixMarkerReportsAmount KeyPrefix = "MARKER_REPORTS_AMOUNT:"
	// KeyPrefixUserReport はユーザーごとの通報済みフラグのプレフィックス。
	KeyPrefixUserReport KeyPrefix = "USER_REPORT:"
)

// Key はプレフィックスとキーを結合したキャッシュキーを生成する。
func Key(prefix KeyPrefix, key string) string {
	return string(prefix) + key
}

// Store はTTL付きキー/バリューストアのインターフェース。
type Store interface {
	// Get は指定キーの値を返す。キーが存在しない場合は空文字列とfalseを返す。
	Get(ctx context.Context, key string) (string, bool, error)

	// Set は指定キーに値をTTL付きで保存する。
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del は指定キーを削除する。存在しないキーはエラーにしない。
	Del(ctx context.Context, keys ...string) error

	// Keys はパターンに一致するキーの一覧を返す。
	Keys(ctx context.Context, pattern string) ([]string, error)
}
