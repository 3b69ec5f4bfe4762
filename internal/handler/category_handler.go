package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/ollamap/internal/model"
)

// CategoryLister はカテゴリ一覧取得のためのインターフェース。
// 静的な参照データのためサービス層を介さず、最小限のインターフェースとして定義する。
type CategoryLister interface {
	// List は全カテゴリを取得する。
	List(ctx context.Context) ([]*model.Category, error)
}

// CategoryHandler はカテゴリのHTTPハンドラー。
type CategoryHandler struct {
	categories CategoryLister
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(categories CategoryLister) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// categoryListItemResponse はカテゴリ一覧1件のAPIレスポンス。
type categoryListItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// ListCategories は全カテゴリを返す。
// GET /api/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]categoryListItemResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categoryListItemResponse{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Color:       c.Color,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
