package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/techknots/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	EnrollRate      rate.Limit    // 受講登録のレート（req/sec）
	EnrollBurst     int           // 受講登録のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// NewRateLimiterConfig は分あたりの上限からレート制限設定を生成する。
func NewRateLimiterConfig(generalPerMin, enrollPerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(generalPerMin) / 60.0),
		GeneralBurst:    generalPerMin,
		EnrollRate:      rate.Limit(float64(enrollPerMin) / 60.0),
		EnrollBurst:     enrollPerMin,
		CleanupInterval: 5 * time.Minute,
	}
}

// keyedLimiter はキーごとのレートリミッターとアクセス時刻を保持する。
type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet はキーごとのリミッター集合を管理する。
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	r        rate.Limit
	burst    int
}

func newLimiterSet(r rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		limiters: make(map[string]*keyedLimiter),
		r:        r,
		burst:    burst,
	}
}

// get はキーに対応するリミッターを取得または作成する。
func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kl, exists := s.limiters[key]; exists {
		kl.lastAccess = time.Now()
		return kl.limiter
	}

	limiter := rate.NewLimiter(s.r, s.burst)
	s.limiters[key] = &keyedLimiter{limiter: limiter, lastAccess: time.Now()}
	return limiter
}

// count は現在管理されているエントリ数を返す。テストおよびメトリクス用。
func (s *limiterSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// cleanup は最終アクセス時刻がttlを超えたエントリを削除する。
func (s *limiterSet) cleanup(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, kl := range s.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(s.limiters, key)
		}
	}
}

// RateLimiter はキーごとのレート制限を管理する。
// API全般のレート制限と受講登録のレート制限の2種類を提供する。
// 認証済みリクエストはユーザーID、未認証リクエストは接続元IPをキーとする。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterSet
	enroll  *limiterSet
	stopCh  chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterSet(config.GeneralRate, config.GeneralBurst),
		enroll:  newLimiterSet(config.EnrollRate, config.EnrollBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// 公開エンドポイントにも適用できるよう、コンテキストにユーザーIDが
// なければ接続元IPをキーとして使用する。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiterKey(r)

			if !rl.general.get(key).Allow() {
				writeRateLimitResponse(w, rl.config.GeneralRate)
				slog.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// EnrollMiddleware は受講登録専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
// ベアラー認証ミドルウェアの後に配置する必要がある。
func (rl *RateLimiter) EnrollMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if !rl.enroll.get(userID).Allow() {
				writeRateLimitResponse(w, rl.config.EnrollRate)
				slog.Warn("rate limit exceeded",
					slog.String("user_id", userID),
					slog.String("limit_type", "enroll"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.count()
}

// EnrollLimiterCount は現在管理されている受講登録リミッターのエントリ数を返す。
func (rl *RateLimiter) EnrollLimiterCount() int {
	return rl.enroll.count()
}

// limiterKey はレート制限のキーを決定する。
// 認証済みならユーザーID、未認証なら接続元IP。
func limiterKey(r *http.Request) string {
	if userID, err := UserIDFromContext(r.Context()); err == nil {
		return "user:" + userID
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ttl := rl.config.CleanupInterval * 2
			rl.general.cleanup(ttl)
			rl.enroll.cleanup(ttl)
		case <-rl.stopCh:
			return
		}
	}
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "RATE_LIMIT_EXCEEDED",
		"message":  "リクエストが多すぎます。",
		"category": "system",
		"action":   "しばらく待ってから再度お試しください。",
	})
}
