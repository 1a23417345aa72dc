// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/techknots/internal/auth"
	"github.com/hitoshi/techknots/internal/metrics"
	"github.com/hitoshi/techknots/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// UserEnsurer は検証済みトークンからユーザープロフィールを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type UserEnsurer interface {
	EnsureUser(ctx context.Context, token *auth.IDToken) (*model.User, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証し、
// 検証済みユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
// リクエストボディや他のヘッダーが申告するユーザーIDは一切参照しない。
// トークンの欠落・不正はすべて同一の401レスポンスとし、詳細はログにのみ記録する。
func NewBearerAuthMiddleware(verifier auth.Verifier, users UserEnsurer, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			idToken, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				collector.RecordTokenVerifyFailure()
				slog.Warn("token verification failed",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 検証済みトークンの初回リクエスト時にプロフィールを自動作成する
			user, err := users.EnsureUser(r.Context(), idToken)
			if err != nil {
				slog.Error("failed to ensure user profile",
					slog.String("error", err.Error()),
					slog.String("user_id", idToken.UID),
				)
				WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewServiceUnavailableError())
				return
			}

			ctx := ContextWithUserID(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// UserIDFromContext はリクエストコンテキストから検証済みユーザーIDを取得する。
// ベアラー認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
