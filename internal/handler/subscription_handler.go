package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ollamap/internal/model"
)

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	// Subscribe はマーカーを購読する。購読済みの場合は既存の購読を返す。
	Subscribe(ctx context.Context, markerID, userID string) (*model.Subscription, error)
	// Unsubscribe はマーカーの購読を解除する。未購読の場合は何もしない。
	Unsubscribe(ctx context.Context, markerID, userID string) error
}

// SubscriptionHandler はマーカー購読のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// subscriptionResponse は購読のAPIレスポンス。
type subscriptionResponse struct {
	ID        string    `json:"id"`
	MarkerID  string    `json:"marker_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscribe はマーカー購読を処理する。
// POST /api/markers/:id/subscription
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sub, err := h.service.Subscribe(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, subscriptionResponse{
		ID:        sub.ID,
		MarkerID:  sub.MarkerID,
		UserID:    sub.UserID,
		CreatedAt: sub.CreatedAt,
	})
}

// Unsubscribe はマーカー購読の解除を処理する。
// DELETE /api/markers/:id/subscription
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unsubscribe(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
