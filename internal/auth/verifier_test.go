package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testProjectID = "techknots-test"

// testKeySet はテスト用の署名鍵とそれを配信するcertsエンドポイントを保持する。
type testKeySet struct {
	kid     string
	key     *rsa.PrivateKey
	server  *httptest.Server
	fetches int
}

func newTestKeySet(t *testing.T) *testKeySet {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	ks := &testKeySet{kid: "test-kid-1", key: key}

	certPEM := selfSignedCertPEM(t, key)
	ks.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ks.fetches++
		w.Header().Set("Cache-Control", "public, max-age=3600")
		json.NewEncoder(w).Encode(map[string]string{ks.kid: certPEM})
	}))
	t.Cleanup(ks.server.Close)

	return ks
}

func selfSignedCertPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

// signToken はテスト鍵でIDトークンを署名する。
func (ks *testKeySet) signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ks.kid
	signed, err := token.SignedString(ks.key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   "https://securetoken.google.com/" + testProjectID,
		"aud":   testProjectID,
		"sub":   "user-abc",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"email": "taro@example.com",
		"name":  "山田太郎",
		"firebase": map[string]any{
			"sign_in_provider": "password",
		},
	}
}

func newTestVerifier(ks *testKeySet) *SecureTokenVerifier {
	return NewSecureTokenVerifier(VerifierConfig{
		ProjectID: testProjectID,
		CertsURL:  ks.server.URL,
	})
}

func TestSecureTokenVerifier_Verify_ValidToken(t *testing.T) {
	ks := newTestKeySet(t)
	v := newTestVerifier(ks)

	raw := ks.signToken(t, validClaims())

	idToken, err := v.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("有効なトークンが拒否されました: %v", err)
	}
	if idToken.UID != "user-abc" {
		t.Errorf("UID = %q, want %q", idToken.UID, "user-abc")
	}
	if idToken.Email != "taro@example.com" {
		t.Errorf("Email = %q, want %q", idToken.Email, "taro@example.com")
	}
	if idToken.Provider != "password" {
		t.Errorf("Provider = %q, want %q", idToken.Provider, "password")
	}
}

func TestSecureTokenVerifier_Verify_RejectsInvalidTokens(t *testing.T) {
	ks := newTestKeySet(t)
	v := newTestVerifier(ks)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name: "空のトークン",
			token: func(t *testing.T) string {
				return ""
			},
		},
		{
			name: "有効期限切れ",
			token: func(t *testing.T) string {
				claims := validClaims()
				claims["exp"] = time.Now().Add(-time.Minute).Unix()
				return ks.signToken(t, claims)
			},
		},
		{
			name: "audienceが別プロジェクト",
			token: func(t *testing.T) string {
				claims := validClaims()
				claims["aud"] = "other-project"
				return ks.signToken(t, claims)
			},
		},
		{
			name: "発行者が不正",
			token: func(t *testing.T) string {
				claims := validClaims()
				claims["iss"] = "https://evil.example.com/" + testProjectID
				return ks.signToken(t, claims)
			},
		},
		{
			name: "subクレームが空",
			token: func(t *testing.T) string {
				claims := validClaims()
				claims["sub"] = ""
				return ks.signToken(t, claims)
			},
		},
		{
			name: "別の鍵による署名",
			token: func(t *testing.T) string {
				token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
				token.Header["kid"] = ks.kid
				signed, err := token.SignedString(otherKey)
				if err != nil {
					t.Fatalf("failed to sign token: %v", err)
				}
				return signed
			},
		},
		{
			name: "kidヘッダーなし",
			token: func(t *testing.T) string {
				token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
				signed, err := token.SignedString(ks.key)
				if err != nil {
					t.Fatalf("failed to sign token: %v", err)
				}
				return signed
			},
		},
		{
			name: "HS256による署名アルゴリズム偽装",
			token: func(t *testing.T) string {
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
				token.Header["kid"] = ks.kid
				signed, err := token.SignedString([]byte("secret"))
				if err != nil {
					t.Fatalf("failed to sign token: %v", err)
				}
				return signed
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token(t))
			if err == nil {
				t.Error("不正なトークンが受理されました")
			}
		})
	}
}

func TestSecureTokenVerifier_Verify_CachesKeys(t *testing.T) {
	ks := newTestKeySet(t)
	v := newTestVerifier(ks)

	for i := 0; i < 3; i++ {
		raw := ks.signToken(t, validClaims())
		if _, err := v.Verify(context.Background(), raw); err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
	}

	if ks.fetches != 1 {
		t.Errorf("certs fetches = %d, want 1 (max-age内はキャッシュを使う)", ks.fetches)
	}
}

func TestSecureTokenVerifier_Verify_RefetchesOnUnknownKid(t *testing.T) {
	ks := newTestKeySet(t)
	v := newTestVerifier(ks)

	// 最初の鍵セットでキャッシュを温める
	raw := ks.signToken(t, validClaims())
	if _, err := v.Verify(context.Background(), raw); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// 鍵をローテーションし、新しいkidで署名されたトークンを検証
	ks.kid = "test-kid-2"
	raw = ks.signToken(t, validClaims())
	if _, err := v.Verify(context.Background(), raw); err != nil {
		t.Fatalf("ローテーション後のトークンが拒否されました: %v", err)
	}

	if ks.fetches != 2 {
		t.Errorf("certs fetches = %d, want 2 (未知のkidで再取得する)", ks.fetches)
	}
}

func TestParseMaxAge(t *testing.T) {
	tests := []struct {
		name         string
		cacheControl string
		want         time.Duration
	}{
		{"max-age指定あり", "public, max-age=21600, must-revalidate", 21600 * time.Second},
		{"max-ageなし", "no-store", defaultKeyTTL},
		{"空ヘッダー", "", defaultKeyTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseMaxAge(tt.cacheControl); got != tt.want {
				t.Errorf("parseMaxAge(%q) = %v, want %v", tt.cacheControl, got, tt.want)
			}
		})
	}
}
