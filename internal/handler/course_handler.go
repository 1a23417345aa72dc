// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/techknots/internal/catalog"
	"github.com/hitoshi/techknots/internal/model"
)

// CatalogServiceInterface は講座ハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	// ListCourses は全講座を返す。
	ListCourses(ctx context.Context) ([]*model.Course, error)
	// FetchThumbnail は講座のサムネイル画像をサーバーサイドで取得する。
	FetchThumbnail(ctx context.Context, courseID string) (*catalog.Thumbnail, error)
}

// CourseHandler は講座カタログのHTTPハンドラー。
type CourseHandler struct {
	service CatalogServiceInterface
}

// NewCourseHandler はCourseHandlerを生成する。
func NewCourseHandler(service CatalogServiceInterface) *CourseHandler {
	return &CourseHandler{service: service}
}

// courseResponse は講座情報のAPIレスポンス。
// Priceは無料講座でnullになる。
type courseResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	SubCategory string   `json:"subCategory"`
	Price       *float64 `json:"price"`
	Thumbnail   string   `json:"thumbnail"`
}

func toCourseResponse(c *model.Course) courseResponse {
	return courseResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		SubCategory: c.SubCategory,
		Price:       c.Price,
		Thumbnail:   c.Thumbnail,
	}
}

// ListCourses は講座一覧を返す。認証不要。
// GET /api/courses
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.ListCourses(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 講座が1件もない場合も空配列の200を返す
	responses := make([]courseResponse, len(courses))
	for i, c := range courses {
		responses[i] = toCourseResponse(c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetThumbnail は講座のサムネイル画像をプロキシ配信する。認証不要。
// GET /api/courses/{id}/thumbnail
func (h *CourseHandler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")

	thumb, err := h.service.FetchThumbnail(r.Context(), courseID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", thumb.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(thumb.Body)
}
