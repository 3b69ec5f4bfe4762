package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/request"
)

// RequestServiceInterface は物資リクエストハンドラーが必要とするサービスインターフェース。
type RequestServiceInterface interface {
	// Add は物資リクエストを作成し、購読者への通知ファンアウトを行う。
	Add(ctx context.Context, input request.AddInput, userID string) (*model.Marker, error)
	// ListByMarker はマーカーの有効な物資リクエスト一覧を取得する。
	ListByMarker(ctx context.Context, markerID string) ([]*model.Request, error)
}

// RequestHandler は物資リクエストのHTTPハンドラー。
type RequestHandler struct {
	service RequestServiceInterface
}

// NewRequestHandler はRequestHandlerを生成する。
func NewRequestHandler(service RequestServiceInterface) *RequestHandler {
	return &RequestHandler{service: service}
}

// addRequestRequest は物資リクエスト作成リクエストのボディ。
type addRequestRequest struct {
	Description string     `json:"description"`
	Notifiable  bool       `json:"notifiable"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// requestUserResponse は物資リクエスト投稿者の公開プロフィール。
type requestUserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// requestResponse は物資リクエストのAPIレスポンス。
type requestResponse struct {
	ID          string               `json:"id"`
	Description string               `json:"description"`
	MarkerID    string               `json:"marker_id"`
	Notifiable  bool                 `json:"notifiable"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	User        *requestUserResponse `json:"user,omitempty"`
}

// AddRequest は物資リクエストを作成し、対象マーカーを返す。
// POST /api/markers/:id/requests
func (h *RequestHandler) AddRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req addRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	m, err := h.service.Add(r.Context(), request.AddInput{
		MarkerID:    chi.URLParam(r, "id"),
		Description: req.Description,
		Notifiable:  req.Notifiable,
		ExpiresAt:   req.ExpiresAt,
	}, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMarkerResponse(m))
}

// ListRequests はマーカーの有効な物資リクエスト一覧を返す。
// GET /api/markers/:id/requests
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListByMarker(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]requestResponse, 0, len(requests))
	for _, req := range requests {
		item := requestResponse{
			ID:          req.ID,
			Description: req.Description,
			MarkerID:    req.MarkerID,
			Notifiable:  req.Notifiable,
			ExpiresAt:   req.ExpiresAt,
			CreatedAt:   req.CreatedAt,
		}
		if req.User != nil {
			item.User = &requestUserResponse{
				Email: req.User.Email,
				Name:  req.User.Name,
			}
		}
		resp = append(resp, item)
	}

	writeJSON(w, http.StatusOK, resp)
}
