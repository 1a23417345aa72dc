package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/techknots/internal/middleware"
	"github.com/hitoshi/techknots/internal/model"
)

// EnrollmentServiceInterface は受講登録ハンドラーが必要とするサービスインターフェース。
type EnrollmentServiceInterface interface {
	// Enroll は受講登録レコードを1件追記する。
	Enroll(ctx context.Context, userID, courseID string) (*model.Enrollment, error)
	// ListCourseIDs はユーザーが登録済みの講座ID集合を返す。
	ListCourseIDs(ctx context.Context, userID string) ([]string, error)
}

// EnrollHandler は受講登録のHTTPハンドラー。
type EnrollHandler struct {
	service EnrollmentServiceInterface
}

// NewEnrollHandler はEnrollHandlerを生成する。
func NewEnrollHandler(service EnrollmentServiceInterface) *EnrollHandler {
	return &EnrollHandler{service: service}
}

// enrollRequest は受講登録リクエストのボディ。
// ユーザーIDはボディからではなく検証済みトークンから導出するため含まれない。
type enrollRequest struct {
	CourseID string `json:"courseId"`
}

// enrollmentResponse は受講登録レコードのAPIレスポンス。
type enrollmentResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	CourseID   string    `json:"courseId"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// enrollResponse は受講登録成功レスポンス。
type enrollResponse struct {
	Success    bool               `json:"success"`
	Enrollment enrollmentResponse `json:"enrollment"`
}

// Enroll は受講登録を処理する。
// POST /api/enroll
//
// この操作は冪等ではない。同一の (ユーザー, 講座) で再度呼ばれた場合も
// 成功レスポンスを返し、ストアには2件目のレコードが追記される。
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if req.CourseID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("courseIdは必須です"))
		return
	}

	enrollment, err := h.service.Enroll(r.Context(), userID, req.CourseID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(enrollResponse{
		Success: true,
		Enrollment: enrollmentResponse{
			ID:         enrollment.ID,
			UserID:     enrollment.UserID,
			CourseID:   enrollment.CourseID,
			EnrolledAt: enrollment.EnrolledAt,
		},
	})
}

// myEnrollmentsResponse は登録済み講座ID一覧のレスポンス。
type myEnrollmentsResponse struct {
	CourseIDs []string `json:"courseIds"`
}

// MyEnrollments は認証済みユーザーの登録済み講座ID集合を返す。
// GET /api/enrollments/me
func (h *EnrollHandler) MyEnrollments(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	courseIDs, err := h.service.ListCourseIDs(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(myEnrollmentsResponse{CourseIDs: courseIDs})
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     model.ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeCourseNotFound:
		return http.StatusNotFound
	case model.ErrCodeThumbnailBlocked:
		return http.StatusForbidden
	case model.ErrCodeThumbnailFetch:
		return http.StatusBadGateway
	case model.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
