package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/techknots/internal/middleware"
	"github.com/hitoshi/techknots/internal/model"
)

// mockEnrollmentService はEnrollmentServiceInterfaceのモック。
type mockEnrollmentService struct {
	enrollFn func(ctx context.Context, userID, courseID string) (*model.Enrollment, error)
	listFn   func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockEnrollmentService) Enroll(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	return m.enrollFn(ctx, userID, courseID)
}

func (m *mockEnrollmentService) ListCourseIDs(ctx context.Context, userID string) ([]string, error) {
	return m.listFn(ctx, userID)
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), "user-abc"))
}

func TestEnrollHandler_Enroll_Success(t *testing.T) {
	enrolledAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	service := &mockEnrollmentService{
		enrollFn: func(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
			if userID != "user-abc" {
				t.Errorf("userID = %q, want user-abc（トークン由来のIDのみを使う）", userID)
			}
			return &model.Enrollment{
				ID:         "enr-1",
				UserID:     userID,
				CourseID:   courseID,
				EnrolledAt: enrolledAt,
			}, nil
		},
	}
	h := NewEnrollHandler(service)

	rec := httptest.NewRecorder()
	h.Enroll(rec, authedRequest(http.MethodPost, "/api/enroll", `{"courseId":"course-1"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body enrollResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.Enrollment.CourseID != "course-1" || body.Enrollment.UserID != "user-abc" {
		t.Errorf("enrollment = %+v", body.Enrollment)
	}
}

// TestEnrollHandler_Enroll_IgnoresBodyUserID はリクエストボディでユーザーIDを
// 申告しても無視され、トークン由来のIDが使われることをテストする。
func TestEnrollHandler_Enroll_IgnoresBodyUserID(t *testing.T) {
	var gotUserID string
	service := &mockEnrollmentService{
		enrollFn: func(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
			gotUserID = userID
			return &model.Enrollment{ID: "enr-1", UserID: userID, CourseID: courseID}, nil
		},
	}
	h := NewEnrollHandler(service)

	rec := httptest.NewRecorder()
	h.Enroll(rec, authedRequest(http.MethodPost, "/api/enroll",
		`{"courseId":"course-1","userId":"someone-else"}`))

	if gotUserID != "user-abc" {
		t.Errorf("userID = %q, want user-abc", gotUserID)
	}
}

func TestEnrollHandler_Enroll_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"courseIdなし", `{}`},
		{"courseIdが空", `{"courseId":""}`},
		{"JSONが壊れている", `{not json`},
	}

	service := &mockEnrollmentService{
		enrollFn: func(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
			t.Error("不正なリクエストなのにサービスが呼ばれました")
			return nil, nil
		},
	}
	h := NewEnrollHandler(service)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Enroll(rec, authedRequest(http.MethodPost, "/api/enroll", tt.body))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}

			var body apiErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != model.ErrCodeInvalidRequest {
				t.Errorf("error code = %q, want INVALID_REQUEST", body.Code)
			}
		})
	}
}

func TestEnrollHandler_Enroll_CourseNotFound(t *testing.T) {
	service := &mockEnrollmentService{
		enrollFn: func(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
			return nil, model.NewCourseNotFoundError(courseID)
		},
	}
	h := NewEnrollHandler(service)

	rec := httptest.NewRecorder()
	h.Enroll(rec, authedRequest(http.MethodPost, "/api/enroll", `{"courseId":"missing"}`))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestEnrollHandler_Enroll_Unauthenticated(t *testing.T) {
	service := &mockEnrollmentService{
		enrollFn: func(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
			t.Error("未認証なのにサービスが呼ばれました")
			return nil, nil
		},
	}
	h := NewEnrollHandler(service)

	// コンテキストにユーザーIDを入れないリクエスト
	req := httptest.NewRequest(http.MethodPost, "/api/enroll", strings.NewReader(`{"courseId":"course-1"}`))
	rec := httptest.NewRecorder()
	h.Enroll(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestEnrollHandler_Enroll_InternalError(t *testing.T) {
	service := &mockEnrollmentService{
		enrollFn: func(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewEnrollHandler(service)

	rec := httptest.NewRecorder()
	h.Enroll(rec, authedRequest(http.MethodPost, "/api/enroll", `{"courseId":"course-1"}`))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	// 生のエラー内容がレスポンスに漏れないこと
	if strings.Contains(rec.Body.String(), "db down") {
		t.Error("内部エラーの詳細がレスポンスに含まれています")
	}
}

func TestEnrollHandler_MyEnrollments(t *testing.T) {
	service := &mockEnrollmentService{
		listFn: func(ctx context.Context, userID string) ([]string, error) {
			return []string{"course-1", "course-2"}, nil
		},
	}
	h := NewEnrollHandler(service)

	rec := httptest.NewRecorder()
	h.MyEnrollments(rec, authedRequest(http.MethodGet, "/api/enrollments/me", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body myEnrollmentsResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.CourseIDs) != 2 {
		t.Errorf("courseIds = %v", body.CourseIDs)
	}
}

func TestEnrollHandler_MyEnrollments_EmptyList(t *testing.T) {
	service := &mockEnrollmentService{
		listFn: func(ctx context.Context, userID string) ([]string, error) {
			return []string{}, nil
		},
	}
	h := NewEnrollHandler(service)

	rec := httptest.NewRecorder()
	h.MyEnrollments(rec, authedRequest(http.MethodGet, "/api/enrollments/me", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"courseIds":[]`) {
		t.Errorf("空配列が返っていません: %s", rec.Body.String())
	}
}
