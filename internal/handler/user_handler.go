package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/ollamap/internal/model"
	"github.com/hitoshi/ollamap/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetProfile はユーザーの公開プロフィールを取得する。
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	// GetEvents はユーザーが所有するマーカー一覧を取得する。
	GetEvents(ctx context.Context, userID string) ([]user.Event, error)
	// GetSubscriptions はユーザーの購読一覧をマーカー付きで取得する。
	GetSubscriptions(ctx context.Context, userID string) ([]user.SubscriptionView, error)
}

// UserHandler はユーザー問い合わせのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// profileResponse は公開プロフィールのAPIレスポンス。
type profileResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// eventResponse はユーザー所有マーカー1件のAPIレスポンス。
type eventResponse struct {
	Marker markerResponse `json:"marker"`
}

// userSubscriptionResponse はユーザー購読1件のAPIレスポンス。
type userSubscriptionResponse struct {
	ID     string         `json:"id"`
	Date   time.Time      `json:"date"`
	Marker markerResponse `json:"marker"`
}

// GetProfile はログインユーザーのプロフィールを返す。
// GET /api/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Email: profile.Email,
		Name:  profile.Name,
	})
}

// GetEvents はログインユーザーが所有するマーカー一覧を返す。
// GET /api/events
func (h *UserHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	events, err := h.service.GetEvents(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, eventResponse{Marker: toMarkerResponse(ev.Marker)})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetSubscriptions はログインユーザーの購読一覧を返す。
// GET /api/subscriptions
func (h *UserHandler) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	views, err := h.service.GetSubscriptions(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]userSubscriptionResponse, 0, len(views))
	for _, v := range views {
		m := v.Marker
		resp = append(resp, userSubscriptionResponse{
			ID:     v.ID,
			Date:   v.Date,
			Marker: toMarkerResponse(&m),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
