// Package auth はIDプロバイダーが発行したIDトークンの検証を提供する。
//
// サーバーは呼び出し元が申告するユーザーIDを一切信用せず、
// Authorizationヘッダーのベアラートークンを公開鍵セットに対して
// 検証した結果からのみユーザーIDを導出する。
package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultCertsURL はIdPの署名検証用公開鍵（X.509証明書）セットのエンドポイント。
// 鍵はローテーションされるため、Cache-Controlヘッダーに従ってキャッシュする。
const defaultCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// IDToken は検証済みIDトークンから取り出したユーザー情報を表す。
type IDToken struct {
	UID      string // ユーザーの安定した不透明ID（subクレーム）
	Email    string
	Name     string
	Provider string // 使用された認証方式（"password", "google.com" 等）
}

// Verifier はIDトークン検証のインターフェース。
// ハンドラーやミドルウェアはこの抽象を通じて検証を行う。
type Verifier interface {
	// Verify はベアラートークンを検証し、検証済みユーザー情報を返す。
	// 署名・有効期限・発行者・audienceのいずれかが不正な場合はエラーを返す。
	Verify(ctx context.Context, rawToken string) (*IDToken, error)
}

// VerifierConfig はSecureTokenVerifierの設定。
type VerifierConfig struct {
	ProjectID string // IdPプロジェクトID（issuerとaudienceの検証に使用）

	// テスト用にオーバーライド可能
	CertsURL   string
	HTTPClient *http.Client
}

// idTokenClaims はIDトークンのクレーム構造。
type idTokenClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Name     string `json:"name"`
	Firebase struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
}

// SecureTokenVerifier はsecuretoken互換のIDトークンを検証する実装。
// IdPの公開鍵セットを取得し、Cache-Controlのmax-ageに従ってキャッシュする。
type SecureTokenVerifier struct {
	config VerifierConfig

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey // kid -> 公開鍵
	expiresAt time.Time
}

// NewSecureTokenVerifier はSecureTokenVerifierを生成する。
func NewSecureTokenVerifier(config VerifierConfig) *SecureTokenVerifier {
	if config.CertsURL == "" {
		config.CertsURL = defaultCertsURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SecureTokenVerifier{
		config: config,
		keys:   make(map[string]*rsa.PublicKey),
	}
}

// Verify はベアラートークンを検証し、検証済みユーザー情報を返す。
// 検証内容: RS256署名、有効期限、発行者（https://securetoken.google.com/<project>）、
// audience（プロジェクトID）、subクレームの存在。
func (v *SecureTokenVerifier) Verify(ctx context.Context, rawToken string) (*IDToken, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("empty token")
	}

	claims := &idTokenClaims{}
	issuer := "https://securetoken.google.com/" + v.config.ProjectID

	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(v.config.ProjectID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("token has empty sub claim")
	}

	provider := claims.Firebase.SignInProvider
	if provider == "" {
		provider = "password"
	}

	return &IDToken{
		UID:      claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Provider: provider,
	}, nil
}

// publicKey はkidに対応する公開鍵を返す。
// キャッシュが新鮮でkidが存在すればそれを返し、
// それ以外の場合は鍵セットを再取得する（鍵ローテーション対応）。
func (v *SecureTokenVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Now().Before(v.expiresAt)
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no public key for kid %q", kid)
	}
	return key, nil
}

// refreshKeys はIdPから公開鍵セットを再取得してキャッシュを置き換える。
func (v *SecureTokenVerifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.CertsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create certs request: %w", err)
	}

	resp, err := v.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("certs request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read certs response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("certs fetch failed with status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.Unmarshal(body, &certs); err != nil {
		return fmt.Errorf("failed to parse certs response: %w", err)
	}
	if len(certs) == 0 {
		return fmt.Errorf("empty certs response")
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, certPEM := range certs {
		key, err := parseRSAPublicKey(certPEM)
		if err != nil {
			return fmt.Errorf("failed to parse cert for kid %q: %w", kid, err)
		}
		keys[kid] = key
	}

	maxAge := parseMaxAge(resp.Header.Get("Cache-Control"))

	v.mu.Lock()
	v.keys = keys
	v.expiresAt = time.Now().Add(maxAge)
	v.mu.Unlock()

	return nil
}

// parseRSAPublicKey はPEMエンコードされたX.509証明書からRSA公開鍵を取り出す。
func parseRSAPublicKey(certPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid certificate: %w", err)
	}

	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate does not carry an RSA public key")
	}
	return key, nil
}

// maxAgePattern はCache-Controlヘッダーのmax-ageディレクティブを抽出する。
var maxAgePattern = regexp.MustCompile(`max-age=(\d+)`)

// defaultKeyTTL はCache-Controlが取得できない場合の鍵キャッシュ期間。
const defaultKeyTTL = time.Hour

// parseMaxAge はCache-Controlヘッダーからキャッシュ期間を決定する。
func parseMaxAge(cacheControl string) time.Duration {
	m := maxAgePattern.FindStringSubmatch(cacheControl)
	if len(m) != 2 {
		return defaultKeyTTL
	}
	seconds, err := strconv.Atoi(m[1])
	if err != nil || seconds <= 0 {
		return defaultKeyTTL
	}
	return time.Duration(seconds) * time.Second
}

// compile-time interface check
var _ Verifier = (*SecureTokenVerifier)(nil)
