// Package idp はIDプロバイダーに対するクライアント側の認証セッションを提供する。
//
// Sessionはサインイン状態とトークンのライフサイクルを管理し、
// 認証状態の変化を購読者に通知する。APIクライアントはSessionを
// トークン供給源として使い、期限切れトークンの更新はSession内部で
// 透過的に行われる。
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	defaultSignInURL = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL  = "https://securetoken.googleapis.com/v1"

	// tokenRefreshMargin は有効期限のこの時間前からトークンを更新する。
	tokenRefreshMargin = 5 * time.Minute
)

// User はサインイン中のユーザーを表す。
type User struct {
	UID   string
	Email string
	Name  string
}

// Config はSessionの設定。
type Config struct {
	APIKey string // IdPのWeb APIキー

	// テスト用にオーバーライド可能
	SignInURL  string
	TokenURL   string
	HTTPClient *http.Client
}

// Session はIdPとの認証セッションを管理する。
// すべてのメソッドは複数ゴルーチンから同時に呼び出せる。
type Session struct {
	config Config

	mu           sync.RWMutex
	user         *User
	idToken      string
	refreshToken string
	expiresAt    time.Time

	subMu   sync.Mutex
	subs    map[int]func(*User)
	nextSub int
}

// NewSession はSessionを生成する。初期状態は未サインイン。
func NewSession(config Config) *Session {
	if config.SignInURL == "" {
		config.SignInURL = defaultSignInURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Session{
		config: config,
		subs:   make(map[int]func(*User)),
	}
}

// credentialResponse はサインイン・サインアップAPIのレスポンス。
type credentialResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"` // 秒数の文字列
}

// idpErrorResponse はIdPのエラーレスポンス。
type idpErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword はメールアドレスとパスワードでサインインする。
// 失敗時は*AuthErrorを返す。未登録ユーザーはKindUserNotFoundに分類され、
// UI側でサインアップへの誘導に使われる。
func (s *Session) SignInWithPassword(ctx context.Context, email, password string) (*User, error) {
	return s.credentialRequest(ctx, "accounts:signInWithPassword", email, password)
}

// SignUpWithPassword はメールアドレスとパスワードで新規登録し、
// そのままサインイン状態にする。
func (s *Session) SignUpWithPassword(ctx context.Context, email, password string) (*User, error) {
	return s.credentialRequest(ctx, "accounts:signUp", email, password)
}

// SignInWithIdP はOAuthプロバイダーから取得した資格情報をIdPの
// セッションに交換してサインインする。providerIDは"google.com"や
// "github.com"などのプロバイダー識別子、providerTokenはポップアップ
// またはリダイレクトフローで取得したプロバイダー発行のトークン。
func (s *Session) SignInWithIdP(ctx context.Context, providerID, providerToken string) (*User, error) {
	// GoogleはIDトークン、それ以外のプロバイダーはアクセストークンを渡す
	tokenParam := "access_token"
	if providerID == "google.com" {
		tokenParam = "id_token"
	}
	postBody := url.Values{
		tokenParam:   {providerToken},
		"providerId": {providerID},
	}
	return s.credentialExchange(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	})
}

func (s *Session) credentialRequest(ctx context.Context, endpoint, email, password string) (*User, error) {
	return s.credentialExchange(ctx, endpoint, map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// credentialExchange は資格情報エンドポイントへPOSTし、成功時に
// セッション状態を更新して購読者へ通知する。
func (s *Session) credentialExchange(ctx context.Context, endpoint string, body map[string]any) (*User, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpointURL := fmt.Sprintf("%s/%s?key=%s", s.config.SignInURL, endpoint, s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return nil, newAuthError(KindNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp idpErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return nil, newAuthError(KindUnknown)
		}
		return nil, newAuthError(classifyIdPError(errResp.Error.Message))
	}

	var cred credentialResponse
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	user := &User{
		UID:   cred.LocalID,
		Email: cred.Email,
		Name:  cred.DisplayName,
	}

	s.mu.Lock()
	s.user = user
	s.idToken = cred.IDToken
	s.refreshToken = cred.RefreshToken
	s.expiresAt = expiryFrom(cred.ExpiresIn)
	s.mu.Unlock()

	s.notify(user)
	return user, nil
}

// SignOut はセッションを破棄し、購読者にnilを通知する。
func (s *Session) SignOut() {
	s.mu.Lock()
	s.user = nil
	s.idToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	s.notify(nil)
}

// CurrentUser は現在サインイン中のユーザーを返す。未サインインならnil。
func (s *Session) CurrentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IDToken は現在有効なIDトークンを返す。
// 有効期限が近い場合はリフレッシュトークンで透過的に更新する。
// 未サインインの場合はエラーを返す。
func (s *Session) IDToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	token := s.idToken
	refreshToken := s.refreshToken
	fresh := time.Now().Before(s.expiresAt.Add(-tokenRefreshMargin))
	s.mu.RUnlock()

	if token == "" {
		return "", newAuthError(KindUnknown)
	}
	if fresh {
		return token, nil
	}

	return s.refresh(ctx, refreshToken)
}

// refreshResponse はトークン更新APIのレスポンス。
type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

// refresh はリフレッシュトークンでIDトークンを更新する。
func (s *Session) refresh(ctx context.Context, refreshToken string) (string, error) {
	reqBody, err := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpointURL := fmt.Sprintf("%s/token?key=%s", s.config.TokenURL, s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return "", newAuthError(KindNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newAuthError(KindUnknown)
	}

	var refreshed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	s.mu.Lock()
	s.idToken = refreshed.IDToken
	if refreshed.RefreshToken != "" {
		s.refreshToken = refreshed.RefreshToken
	}
	s.expiresAt = expiryFrom(refreshed.ExpiresIn)
	s.mu.Unlock()

	return refreshed.IDToken, nil
}

// Subscribe は認証状態の変化を購読する。
// 登録直後に現在の状態で1回コールバックが呼ばれるため、
// 購読者は「変化を待つ」前に現在の状態を取りこぼさない。
// 返り値の関数を呼ぶと購読を解除する。
func (s *Session) Subscribe(fn func(*User)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	// 登録直後に現在の状態で1回通知
	fn(s.CurrentUser())

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// notify は全購読者に認証状態の変化を通知する。
func (s *Session) notify(user *User) {
	s.subMu.Lock()
	fns := make([]func(*User), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

// expiryFrom は秒数文字列のexpiresInから有効期限時刻を計算する。
func expiryFrom(expiresIn string) time.Time {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3600
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}
