package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/techknots/internal/auth"
	"github.com/hitoshi/techknots/internal/metrics"
	"github.com/hitoshi/techknots/internal/middleware"
)

// Pinger はヘルスチェックで使用するストア疎通確認のインターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Verifier          auth.Verifier
	UserEnsurer       middleware.UserEnsurer
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Collector         metrics.MetricsCollector

	// サービス
	CatalogService    CatalogServiceInterface
	EnrollmentService EnrollmentServiceInterface
	ContactService    ContactServiceInterface

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging(呼び出し側で適用) → RateLimit(General)
//
// 講座一覧・サムネイル・問い合わせは認証不要。
// 受講登録と登録済み一覧はベアラー認証を必須とする。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	courseHandler := NewCourseHandler(deps.CatalogService)
	enrollHandler := NewEnrollHandler(deps.EnrollmentService)
	contactHandler := NewContactHandler(deps.ContactService)

	// ヘルスチェック（レート制限の外）
	r.Get("/health", healthHandler(deps.DB))

	// --- 認証不要のルート ---
	// 未認証リクエストは接続元IPでレート制限される
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/courses", func(r chi.Router) {
			r.Get("/", courseHandler.ListCourses)
			r.Get("/{id}/thumbnail", courseHandler.GetThumbnail)
		})

		r.Post("/api/contact", contactHandler.Submit)
	})

	// --- ベアラー認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.Verifier, deps.UserEnsurer, deps.Collector))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// POST /api/enroll - 受講登録（登録専用レート制限を追加）
		r.With(deps.RateLimiter.EnrollMiddleware()).Post("/api/enroll", enrollHandler.Enroll)

		r.Get("/api/enrollments/me", enrollHandler.MyEnrollments)
	})

	return r
}

// healthHandler はストア疎通込みのヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
