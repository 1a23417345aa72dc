// Package apiclient はバックエンドAPIのHTTPクライアントを提供する。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TokenSource はリクエストに付与するIDトークンの供給源。
// idp.Sessionがこのインターフェースを満たす。
type TokenSource interface {
	IDToken(ctx context.Context) (string, error)
}

// APIError はバックエンドの統一エラーフォーマットを表す。
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Category   string `json:"category"`
	Action     string `json:"action"`
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d [%s] %s", e.StatusCode, e.Code, e.Message)
}

// IsUnauthorized は認証エラーかどうかを返す。
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsNotFound は対象が存在しない（またはエンドポイント未実装の）エラーかどうかを返す。
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Config はClientの設定。
type Config struct {
	BaseURL    string
	Tokens     TokenSource // nilの場合は認証ヘッダーを付与しない
	HTTPClient *http.Client
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient はClientを生成する。
func NewClient(config Config) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    config.BaseURL,
		tokens:     config.Tokens,
		httpClient: httpClient,
	}
}

// Course は講座一覧APIの講座を表す。
type Course struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	SubCategory string   `json:"subCategory"`
	Price       *float64 `json:"price"` // nullは無料
	Thumbnail   string   `json:"thumbnail"`
}

// Enrollment は受講登録APIの登録レコードを表す。
type Enrollment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	CourseID   string    `json:"courseId"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// ListCourses は全講座を取得する。認証不要。
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := c.do(ctx, http.MethodGet, "/api/courses", nil, &courses, false); err != nil {
		return nil, err
	}
	return courses, nil
}

// enrollResult は受講登録APIのレスポンス。
type enrollResult struct {
	Success    bool       `json:"success"`
	Enrollment Enrollment `json:"enrollment"`
}

// Enroll は講座への受講登録を行う。認証必須。
// この操作は冪等ではない。同じ講座に再度呼ぶとストアに2件目が追記される。
func (c *Client) Enroll(ctx context.Context, courseID string) (*Enrollment, error) {
	body := map[string]string{"courseId": courseID}

	var result enrollResult
	if err := c.do(ctx, http.MethodPost, "/api/enroll", body, &result, true); err != nil {
		return nil, err
	}
	return &result.Enrollment, nil
}

// myEnrollmentsResult は登録済み一覧APIのレスポンス。
type myEnrollmentsResult struct {
	CourseIDs []string `json:"courseIds"`
}

// MyEnrollments は認証済みユーザーの登録済み講座ID集合を取得する。認証必須。
// このエンドポイントはデプロイによっては存在しないため、
// 呼び出し側は404（IsNotFound）を致命的エラーとして扱わないこと。
func (c *Client) MyEnrollments(ctx context.Context) ([]string, error) {
	var result myEnrollmentsResult
	if err := c.do(ctx, http.MethodGet, "/api/enrollments/me", nil, &result, true); err != nil {
		return nil, err
	}
	return result.CourseIDs, nil
}

// ContactInput は問い合わせ送信の入力。
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Option  string `json:"option"` // "paid" | "consultation" | "free"
	Message string `json:"message"`
}

// SubmitContact は問い合わせメッセージを送信する。認証不要。
func (c *Client) SubmitContact(ctx context.Context, input ContactInput) error {
	return c.do(ctx, http.MethodPost, "/api/contact", input, nil, false)
}

// do はリクエストの送信とレスポンスのデコードを行う。
// エラーレスポンスは*APIErrorに変換する。
func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any, authed bool) error {
	var bodyReader *bytes.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		if c.tokens == nil {
			return fmt.Errorf("no token source configured for authenticated request")
		}
		token, err := c.tokens.IDToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to get ID token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// エラーボディの解析に失敗してもステータスコードは保持する
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
