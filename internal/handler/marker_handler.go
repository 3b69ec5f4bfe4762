package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ollamap/internal/marker"
	"github.com/hitoshi/ollamap/internal/model"
)

// MarkerServiceInterface はマーカーハンドラーが必要とするサービスインターフェース。
type MarkerServiceInterface interface {
	// List は有効期限内のマーカー一覧を取得する。
	List(ctx context.Context) ([]*model.Marker, error)
	// Get はマーカーを1件取得する。期限切れは未検出として扱う。
	Get(ctx context.Context, id string) (*model.Marker, error)
	// Create は新しいマーカーを作成する。
	Create(ctx context.Context, input marker.CreateInput, ownerIDs []string) (*model.Marker, error)
	// Confirm はマーカーの実在確認を記録し有効期限を延長する。
	Confirm(ctx context.Context, id string) (*model.Marker, error)
	// Delete は所有者によるマーカー削除を行い、残りの有効マーカー一覧を返す。
	Delete(ctx context.Context, id, userID string) ([]*model.Marker, error)
	// Report はマーカーを通報し、閾値超過で失効させる。
	Report(ctx context.Context, id, userID string) ([]*model.Marker, error)
	// AdminRequests は所有者向けにマーカーの管理者申請一覧を取得する。
	AdminRequests(ctx context.Context, id, userID string) ([]model.AdminRequestView, error)
}

// MarkerHandler はマーカーライフサイクルのHTTPハンドラー。
type MarkerHandler struct {
	service MarkerServiceInterface
}

// NewMarkerHandler はMarkerHandlerを生成する。
func NewMarkerHandler(service MarkerServiceInterface) *MarkerHandler {
	return &MarkerHandler{service: service}
}

// createMarkerRequest はマーカー作成リクエストのボディ。
type createMarkerRequest struct {
	CategoryID  string     `json:"category_id"`
	Description string     `json:"description"`
	Duration    int        `json:"duration"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Name        string     `json:"name"`
	Recurrence  string     `json:"recurrence"`
	TimeZone    string     `json:"time_zone"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// categoryResponse はカテゴリ情報のAPIレスポンス。
type categoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// markerResponse はマーカー情報のAPIレスポンス。
type markerResponse struct {
	ID          string            `json:"id"`
	CategoryID  string            `json:"category_id"`
	Category    *categoryResponse `json:"category,omitempty"`
	Description string            `json:"description"`
	Duration    int               `json:"duration"`
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	Name        string            `json:"name"`
	Owners      []string          `json:"owners"`
	Recurrence  string            `json:"recurrence"`
	TimeZone    string            `json:"time_zone"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// adminRequestViewResponse は管理者申請一覧の1行のAPIレスポンス。
type adminRequestViewResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}

// ListMarkers は有効なマーカー一覧を返す。
// GET /api/markers
func (h *MarkerHandler) ListMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMarkerListResponse(markers))
}

// GetMarker はマーカー詳細を返す。
// GET /api/markers/:id
func (h *MarkerHandler) GetMarker(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMarkerResponse(m))
}

// CreateMarker はマーカーを作成する。作成者が最初の所有者になる。
// POST /api/markers
func (h *MarkerHandler) CreateMarker(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createMarkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	m, err := h.service.Create(r.Context(), marker.CreateInput{
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Duration:    req.Duration,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Name:        req.Name,
		Recurrence:  req.Recurrence,
		TimeZone:    req.TimeZone,
		ExpiresAt:   req.ExpiresAt,
	}, []string{userID})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMarkerResponse(m))
}

// ConfirmMarker はマーカーの実在確認を記録する。
// POST /api/markers/:id/confirm
func (h *MarkerHandler) ConfirmMarker(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMarkerResponse(m))
}

// DeleteMarker は所有者によるマーカー削除を処理し、残りの有効マーカー一覧を返す。
// DELETE /api/markers/:id
func (h *MarkerHandler) DeleteMarker(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	markers, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMarkerListResponse(markers))
}

// ReportMarker はマーカーの通報を処理し、残りの有効マーカー一覧を返す。
// POST /api/markers/:id/report
func (h *MarkerHandler) ReportMarker(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	markers, err := h.service.Report(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMarkerListResponse(markers))
}

// ListAdminRequests はマーカーの管理者申請一覧を返す。所有者以外には空の一覧を返す。
// GET /api/markers/:id/admin-requests
func (h *MarkerHandler) ListAdminRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	views, err := h.service.AdminRequests(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]adminRequestViewResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, adminRequestViewResponse{
			ID:        v.ID,
			Status:    string(v.Status),
			UserName:  v.UserName,
			CreatedAt: v.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- ヘルパー関数 ---

// toMarkerResponse はmodel.MarkerからAPIレスポンスに変換する。
func toMarkerResponse(m *model.Marker) markerResponse {
	resp := markerResponse{
		ID:          m.ID,
		CategoryID:  m.CategoryID,
		Description: m.Description,
		Duration:    m.Duration,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		Name:        m.Name,
		Owners:      m.Owners,
		Recurrence:  m.Recurrence,
		TimeZone:    m.TimeZone,
		ExpiresAt:   m.ExpiresAt,
		CreatedAt:   m.CreatedAt,
	}
	if resp.Owners == nil {
		resp.Owners = []string{}
	}
	if m.Category != nil {
		resp.Category = &categoryResponse{
			ID:    m.Category.ID,
			Name:  m.Category.Name,
			Color: m.Category.Color,
		}
	}
	return resp
}

// toMarkerListResponse はマーカーのスライスをAPIレスポンスに変換する。
func toMarkerListResponse(markers []*model.Marker) []markerResponse {
	resp := make([]markerResponse, 0, len(markers))
	for _, m := range markers {
		resp = append(resp, toMarkerResponse(m))
	}
	return resp
}
