package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ollamap/internal/device"
	"github.com/hitoshi/ollamap/internal/model"
)

// DeviceServiceInterface はデバイスハンドラーが必要とするサービスインターフェース。
type DeviceServiceInterface interface {
	// AppVersion はモバイルアプリの必須バージョン情報を返す。
	AppVersion() device.AppVersion
	// RegisterToken はデバイスのプッシュ通知トークンを登録または更新する。
	RegisterToken(ctx context.Context, input device.RegisterInput, userID string) error
	// UnregisterToken はデバイスのプッシュ通知トークンを削除する。
	UnregisterToken(ctx context.Context, deviceID, userID string) error
}

// DeviceHandler はデバイス管理のHTTPハンドラー。
type DeviceHandler struct {
	service DeviceServiceInterface
}

// NewDeviceHandler はDeviceHandlerを生成する。
func NewDeviceHandler(service DeviceServiceInterface) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// registerDeviceRequest はデバイス登録リクエストのボディ。
type registerDeviceRequest struct {
	DeviceID string `json:"device_id"`
	Platform string `json:"platform"`
	Token    string `json:"token"`
}

// appVersionResponse はアプリバージョン情報のAPIレスポンス。
type appVersionResponse struct {
	Android string `json:"android"`
	IOS     string `json:"ios"`
}

// GetAppVersion はモバイルアプリの必須バージョンを返す。
// GET /api/app-version
func (h *DeviceHandler) GetAppVersion(w http.ResponseWriter, r *http.Request) {
	version := h.service.AppVersion()
	writeJSON(w, http.StatusOK, appVersionResponse{
		Android: version.Android,
		IOS:     version.IOS,
	})
}

// RegisterDevice はデバイストークンの登録・更新を処理する。
// POST /api/devices
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if req.DeviceID == "" || req.Token == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST_BODY",
			Message:  "デバイスIDとトークンは必須です。",
			Category: "validation",
			Action:   "device_idとtokenを指定してください。",
		})
		return
	}

	err := h.service.RegisterToken(r.Context(), device.RegisterInput{
		DeviceID: req.DeviceID,
		Platform: model.Platform(req.Platform),
		Token:    req.Token,
	}, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnregisterDevice はデバイストークンの削除を処理する。
// DELETE /api/devices/:deviceId
func (h *DeviceHandler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.UnregisterToken(r.Context(), chi.URLParam(r, "deviceId"), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
