// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Codeはリゾルバ層・クライアントが分岐に使う安定した閉じた語彙であり、
// 追加・変更する場合は必ずハンドラーのステータスマッピングも更新すること。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: marker, request, subscription, auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsInternal は内部エラー（利用者の操作では解決できない失敗）かどうかを返す。
func (e *APIError) IsInternal() bool {
	return e.Category == "system"
}

// ユーザー入力・状態エラーのコード
const (
	ErrCodeInvalidMarker             = "INVALID_MARKER"
	ErrCodeInvalidAction             = "INVALID_ACTION"
	ErrCodeMarkerAlreadyExpired      = "MARKER_ALREADY_EXPIRED"
	ErrCodeUserAlreadyReportedMarker = "USER_ALREADY_REPORTED_MARKER"
	ErrCodeInvalidRequest            = "INVALID_REQUEST"
	ErrCodeInvalidRequestState       = "INVALID_REQUEST_STATE"
	ErrCodeUserNotAllowed            = "USER_NOT_ALLOWED_TO_PERFORM_OPERATION"
	ErrCodeInvalidUser               = "INVALID_USER"
	ErrCodeAlreadyAnAdministrator    = "ALREADY_AN_ADMINISTRATOR"
	ErrCodeAlreadyRequestedAdmin     = "ALREADY_REQUESTED_ADMINISTRATION"
	ErrCodeCanNotSubscribeExpired    = "CAN_NOT_SUBSCRIBE_EXPIRED_MARKER"
	ErrCodeCanNotSubscribeOwnMarker  = "CAN_NOT_SUBSCRIBE_OWN_MARKER"
	ErrCodeInvalidDeviceIdentifier   = "INVALID_DEVICE_IDENTIFIER"
	ErrCodeInvalidRecurrence         = "INVALID_RECURRENCE"
	ErrCodeInvalidCredentials        = "INVALID_CREDENTIALS"
)

// 内部エラーのコード。操作ごとに1つで、永続化失敗の詳細はログにのみ残す。
const (
	ErrCodeErrorAddingMarker          = "ERROR_ADDING_MARKER"
	ErrCodeErrorConfirmingMarker      = "ERROR_CONFIRMING_MARKER"
	ErrCodeErrorDeletingMarker        = "ERROR_DELETING_MARKER"
	ErrCodeErrorExpiringMarker        = "ERROR_EXPIRING_MARKER"
	ErrCodeErrorReportingMarker       = "ERROR_REPORTING_MARKER"
	ErrCodeErrorUpdatingMarkerReq     = "ERROR_UPDATING_MARKER_REQUEST"
	ErrCodeErrorRequestingMarkerAdmin = "ERROR_REQUESTING_MARKER_ADMINISTRATION"
	ErrCodeErrorCreatingRequest       = "ERROR_CREATING_REQUEST"
	ErrCodeErrorSubscribingMarker     = "ERROR_SUBSCRIBING_MARKER"
	ErrCodeErrorUnsubscribingMarker   = "ERROR_UNSUBSCRIBING_MARKER"
	ErrCodeErrorRegisteringToken      = "ERROR_REGISTERING_TOKEN"
	ErrCodeErrorUnregisteringToken    = "ERROR_UNREGISTERING_TOKEN"
	ErrCodeErrorCreatingUser          = "ERROR_CREATING_USER"
)

// NewInvalidMarkerError はマーカー未検出エラーを生成する。
func NewInvalidMarkerError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMarker,
		Message:  "指定されたマーカーが見つかりません。",
		Category: "marker",
		Action:   "マーカーIDを確認してください。",
	}
}

// NewInvalidActionError は所有者以外による操作エラーを生成する。
func NewInvalidActionError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAction,
		Message:  "この操作はマーカーの所有者のみが実行できます。",
		Category: "marker",
		Action:   "所有しているマーカーに対してのみ実行してください。",
	}
}

// NewMarkerAlreadyExpiredError は期限切れマーカーへの通報エラーを生成する。
func NewMarkerAlreadyExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeMarkerAlreadyExpired,
		Message:  "このマーカーはすでに期限切れです。",
		Category: "marker",
		Action:   "期限切れのマーカーは通報できません。",
	}
}

// NewUserAlreadyReportedMarkerError は同一ユーザーの再通報エラーを生成する。
func NewUserAlreadyReportedMarkerError() *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyReportedMarker,
		Message:  "このマーカーはすでに通報済みです。",
		Category: "marker",
		Action:   "同じマーカーを再度通報することはできません。",
	}
}

// NewInvalidRequestError は管理者申請の未検出エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "指定された管理者申請が見つかりません。",
		Category: "request",
		Action:   "申請IDを確認してください。",
	}
}

// NewInvalidRequestStateError は解決済み申請への再遷移エラーを生成する。
func NewInvalidRequestStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequestState,
		Message:  "この申請はすでに解決済みか、無効な応答が指定されました。",
		Category: "request",
		Action:   "未解決の申請に対してacceptedまたはrejectedを指定してください。",
	}
}

// NewUserNotAllowedError は権限のないユーザーによる操作エラーを生成する。
func NewUserNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotAllowed,
		Message:  "この操作を実行する権限がありません。",
		Category: "auth",
		Action:   "マーカーの所有者のみが申請に応答できます。",
	}
}

// NewInvalidUserError はユーザー未検出エラーを生成する。
func NewInvalidUserError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUser,
		Message:  "指定されたユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewAlreadyAnAdministratorError は所有者自身による申請エラーを生成する。
func NewAlreadyAnAdministratorError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyAnAdministrator,
		Message:  "すでにこのマーカーの管理者です。",
		Category: "request",
		Action:   "所有していないマーカーに対してのみ申請できます。",
	}
}

// NewAlreadyRequestedAdministrationError は重複申請エラーを生成する。
func NewAlreadyRequestedAdministrationError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyRequestedAdmin,
		Message:  "このマーカーにはすでに管理者申請を送信済みです。",
		Category: "request",
		Action:   "所有者の応答をお待ちください。",
	}
}

// NewCanNotSubscribeExpiredMarkerError は期限切れマーカーへの購読エラーを生成する。
func NewCanNotSubscribeExpiredMarkerError() *APIError {
	return &APIError{
		Code:     ErrCodeCanNotSubscribeExpired,
		Message:  "期限切れのマーカーは購読できません。",
		Category: "subscription",
		Action:   "有効なマーカーを購読してください。",
	}
}

// NewCanNotSubscribeOwnMarkerError は自己購読エラーを生成する。
func NewCanNotSubscribeOwnMarkerError() *APIError {
	return &APIError{
		Code:     ErrCodeCanNotSubscribeOwnMarker,
		Message:  "自分が所有するマーカーは購読できません。",
		Category: "subscription",
		Action:   "所有していないマーカーを購読してください。",
	}
}

// NewInvalidDeviceIdentifierError はデバイス未検出エラーを生成する。
func NewInvalidDeviceIdentifierError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDeviceIdentifier,
		Message:  "指定されたデバイスが見つかりません。",
		Category: "validation",
		Action:   "デバイスIDを確認してください。",
	}
}

// NewInvalidRecurrenceError は繰り返しルールの検証エラーを生成する。
func NewInvalidRecurrenceError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRecurrence,
		Message:  fmt.Sprintf("無効な繰り返しルールです: %s", reason),
		Category: "validation",
		Action:   "将来の開催が1回以上あるRRULE形式で指定してください。",
	}
}

// NewInvalidCredentialsError は認証情報の不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "認証情報を確認して再度お試しください。",
	}
}

// NewInternalError は操作固有の内部エラーを生成する。
// 永続化エラーの詳細はここで破棄し、ログ側にのみ残す。
func NewInternalError(code string) *APIError {
	return &APIError{
		Code:     code,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
