// Package recurrence はマーカーの開催スケジュール（RRULE文字列）の検証を提供する。
package recurrence

import (
	"time"

	"github.com/teambition/rrule-go"
)

// Validate はRRULE文字列（RFC 5545）を検証する。
// 構文が正しく、かつnow以降に少なくとも1回の開催があれば有効とみなす。
// 終了済みのルール（UNTILが過去等）は無効。
func Validate(value string, now time.Time) bool {
	if value == "" {
		return false
	}

	rule, err := rrule.StrToRRule(value)
	if err != nil {
		return false
	}

	next := rule.After(now, true)
	return !next.IsZero()
}
