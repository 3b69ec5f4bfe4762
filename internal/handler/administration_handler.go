package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ollamap/internal/model"
)

// AdministrationServiceInterface は管理者申請ハンドラーが必要とするサービスインターフェース。
type AdministrationServiceInterface interface {
	// RequestAdministration はマーカーの管理者申請を作成する。
	// 未所有マーカーへの申請は即時承認され、申請者が所有者になる。
	RequestAdministration(ctx context.Context, markerID, userID string) (*model.AdminRequest, error)
	// RespondRequest は所有者による申請への応答（承認・却下）を処理する。
	RespondRequest(ctx context.Context, requestID string, response model.RequestStatus, userID string) (*model.Marker, error)
}

// AdministrationHandler は管理者申請のHTTPハンドラー。
type AdministrationHandler struct {
	service AdministrationServiceInterface
}

// NewAdministrationHandler はAdministrationHandlerを生成する。
func NewAdministrationHandler(service AdministrationServiceInterface) *AdministrationHandler {
	return &AdministrationHandler{service: service}
}

// respondRequestRequest は申請応答リクエストのボディ。
type respondRequestRequest struct {
	Response string `json:"response"`
}

// adminRequestResponse は管理者申請のAPIレスポンス。
type adminRequestResponse struct {
	ID        string    `json:"id"`
	MarkerID  string    `json:"marker_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RequestAdministration はマーカーの管理者申請を処理する。
// POST /api/markers/:id/admin-requests
func (h *AdministrationHandler) RequestAdministration(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	req, err := h.service.RequestAdministration(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, adminRequestResponse{
		ID:        req.ID,
		MarkerID:  req.MarkerID,
		UserID:    req.UserID,
		Status:    string(req.Status),
		CreatedAt: req.CreatedAt,
	})
}

// RespondRequest は所有者による申請応答を処理し、更新後のマーカーを返す。
// POST /api/admin-requests/:id/respond
func (h *AdministrationHandler) RespondRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req respondRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	m, err := h.service.RespondRequest(r.Context(), chi.URLParam(r, "id"), model.RequestStatus(req.Response), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMarkerResponse(m))
}
