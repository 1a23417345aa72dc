// Package enrollment は受講登録の機能を提供する。
package enrollment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/techknots/internal/metrics"
	"github.com/hitoshi/techknots/internal/model"
	"github.com/hitoshi/techknots/internal/repository"
)

// Service は受講登録のサービス。
// 登録レコードは追記専用であり、取り消し操作は提供しない。
type Service struct {
	enrollmentRepo repository.EnrollmentRepository
	courseRepo     repository.CourseRepository
	collector      metrics.MetricsCollector
	logger         *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	enrollmentRepo repository.EnrollmentRepository,
	courseRepo repository.CourseRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		collector:      collector,
		logger:         logger,
	}
}

// Enroll は検証済みユーザーIDと講座IDの受講登録レコードを1件追記する。
// 講座の存在確認は行うが、既存登録の有無は確認しない。
// 同一の (userID, courseID) で再度呼ばれた場合は2件目のレコードが追記される
// （重複登録は既知のギャップとして残している）。
func (s *Service) Enroll(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	start := time.Now()

	if courseID == "" {
		s.collector.RecordEnrollFailure("invalid_request")
		return nil, model.NewInvalidRequestError("courseIdは必須です")
	}
	// 講座IDはUUID。形式不正はストア照会の前に弾く
	if err := uuid.Validate(courseID); err != nil {
		s.collector.RecordEnrollFailure("invalid_request")
		return nil, model.NewInvalidRequestError("courseIdの形式が不正です")
	}

	course, err := s.courseRepo.FindByID(ctx, courseID)
	if err != nil {
		s.collector.RecordEnrollFailure("store_error")
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	if course == nil {
		s.collector.RecordEnrollFailure("course_not_found")
		return nil, model.NewCourseNotFoundError(courseID)
	}

	enrollment := &model.Enrollment{
		ID:         uuid.NewString(),
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: time.Now(),
	}
	if err := s.enrollmentRepo.Create(ctx, enrollment); err != nil {
		s.collector.RecordEnrollFailure("store_error")
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	s.collector.RecordEnrollSuccess()
	s.collector.RecordEnrollLatency(time.Since(start))

	s.logger.Info("受講登録を作成しました",
		slog.String("enrollment_id", enrollment.ID),
		slog.String("user_id", userID),
		slog.String("course_id", courseID),
	)

	return enrollment, nil
}

// ListCourseIDs はユーザーが登録済みの講座ID集合を返す。
// 重複レコードが存在しても講座IDは1回だけ含まれる。
// 登録が1件もない場合は空スライスを返す。
func (s *Service) ListCourseIDs(ctx context.Context, userID string) ([]string, error) {
	courseIDs, err := s.enrollmentRepo.ListCourseIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	if courseIDs == nil {
		courseIDs = []string{}
	}
	return courseIDs, nil
}
