// Package catalog は講座カタログの読み取り機能を提供する。
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/techknots/internal/metrics"
	"github.com/hitoshi/techknots/internal/model"
	"github.com/hitoshi/techknots/internal/repository"
	"github.com/hitoshi/techknots/internal/security"
)

// Service は講座カタログのサービス。
// カタログはアプリケーションから見て読み取り専用であり、
// 説明文HTMLは信頼できない入力として応答前にサニタイズする。
type Service struct {
	courseRepo repository.CourseRepository
	sanitizer  security.ContentSanitizerService
	ssrfGuard  security.SSRFGuardService
	collector  metrics.MetricsCollector

	thumbnailTimeout time.Duration
	thumbnailMaxSize int64
}

// NewService はServiceを生成する。
func NewService(
	courseRepo repository.CourseRepository,
	sanitizer security.ContentSanitizerService,
	ssrfGuard security.SSRFGuardService,
	collector metrics.MetricsCollector,
	thumbnailTimeout time.Duration,
	thumbnailMaxSize int64,
) *Service {
	return &Service{
		courseRepo:       courseRepo,
		sanitizer:        sanitizer,
		ssrfGuard:        ssrfGuard,
		collector:        collector,
		thumbnailTimeout: thumbnailTimeout,
		thumbnailMaxSize: thumbnailMaxSize,
	}
}

// ListCourses は全講座をストア定義の順序で返す。
// 講座が1件もない場合は空スライスを返す（エラーにはしない）。
// 各講座の説明文はサニタイズ済み。
func (s *Service) ListCourses(ctx context.Context) ([]*model.Course, error) {
	courses, err := s.courseRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	for _, c := range courses {
		c.Description = s.sanitizer.SanitizeHTML(c.Description)
	}

	return courses, nil
}

// FindCourse は指定IDの講座を返す。見つからない場合はnilを返す。
func (s *Service) FindCourse(ctx context.Context, courseID string) (*model.Course, error) {
	course, err := s.courseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	if course == nil {
		return nil, nil
	}

	course.Description = s.sanitizer.SanitizeHTML(course.Description)
	return course, nil
}

// Thumbnail はサムネイル画像の取得結果を表す。
type Thumbnail struct {
	ContentType string
	Body        []byte
}

// FetchThumbnail は講座のサムネイル画像をサーバーサイドで取得する。
// 取得対象URLはカタログレコード由来だが、カタログ管理側も外部であるため
// SSRF防止の検証を必ず通す。サイズ上限を超えるレスポンスは打ち切る。
func (s *Service) FetchThumbnail(ctx context.Context, courseID string) (*Thumbnail, error) {
	course, err := s.courseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, model.NewServiceUnavailableError()
	}
	if course == nil {
		return nil, model.NewCourseNotFoundError(courseID)
	}
	if course.Thumbnail == "" {
		return nil, model.NewThumbnailFetchError("サムネイルが設定されていません")
	}

	if err := s.ssrfGuard.ValidateURL(course.Thumbnail); err != nil {
		s.collector.RecordThumbnailBlocked()
		return nil, model.NewThumbnailBlockedError()
	}

	client := s.ssrfGuard.NewSafeClient(s.thumbnailTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, course.Thumbnail, nil)
	if err != nil {
		return nil, model.NewThumbnailFetchError("URLが不正です")
	}

	resp, err := client.Do(req)
	if err != nil {
		// safeurlによるブロックと通常の接続エラーはここでは区別しない
		return nil, model.NewThumbnailFetchError("取得に失敗しました")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewThumbnailFetchError(fmt.Sprintf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.thumbnailMaxSize))
	if err != nil {
		return nil, model.NewThumbnailFetchError("読み取りに失敗しました")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	return &Thumbnail{
		ContentType: contentType,
		Body:        body,
	}, nil
}
