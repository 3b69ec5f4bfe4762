// Package notification はプッシュ通知イベントの定義と配信を提供する。
package notification

// Event はプッシュ通知イベント。イベント種別ごとに固定のデータペイロードと
// 通知本文を持つ。種別はここに定義されたものに限る。
type Event interface {
	// Type はイベント種別の識別子を返す。データペイロードのtypeフィールドにも使われる。
	Type() string

	// Body は通知の本文を返す。
	Body() string

	// Data は端末アプリに渡すデータペイロードを返す。typeフィールドを必ず含む。
	Data() map[string]string
}

// AdministrationRequestEvent はマーカーの管理者リクエストが届いたことを
// 既存の管理者へ知らせるイベント。
type AdministrationRequestEvent struct {
	MarkerID   string
	MarkerName string
}

func (e AdministrationRequestEvent) Type() string { return "EVENT_ADMINISTRATION_REQUEST" }

func (e AdministrationRequestEvent) Body() string { return "New administration request" }

func (e AdministrationRequestEvent) Data() map[string]string {
	return map[string]string{
		"type":       e.Type(),
		"markerId":   e.MarkerID,
		"markerName": e.MarkerName,
	}
}

// AdministrationResponseEvent は管理者リクエストへの回答を
// 申請者へ知らせるイベント。
type AdministrationResponseEvent struct {
	MarkerID   string
	MarkerName string
}

func (e AdministrationResponseEvent) Type() string { return "EVENT_ADMINISTRATION_RESPONSE" }

func (e AdministrationResponseEvent) Body() string { return "Administration request response" }

func (e AdministrationResponseEvent) Data() map[string]string {
	return map[string]string{
		"type":       e.Type(),
		"markerId":   e.MarkerID,
		"markerName": e.MarkerName,
	}
}

// MarkerRequestEvent はマーカーに新しい物資リクエストが投稿されたことを
// 購読者へ知らせるイベント。
type MarkerRequestEvent struct {
	MarkerID    string
	MarkerName  string
	RequestID   string
	Description string
}

func (e MarkerRequestEvent) Type() string { return "MARKER_REQUEST" }

func (e MarkerRequestEvent) Body() string { return "New request" }

func (e MarkerRequestEvent) Data() map[string]string {
	return map[string]string{
		"type":        e.Type(),
		"markerId":    e.MarkerID,
		"markerName":  e.MarkerName,
		"requestId":   e.RequestID,
		"description": e.Description,
	}
}
