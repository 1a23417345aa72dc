// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// IdPやDBが返す生のエラーコードをそのままユーザーに見せないため、
// すべてのユーザー向けエラーはこの型に変換してから返す。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, enrollment, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeCourseNotFound     = "COURSE_NOT_FOUND"
	ErrCodeThumbnailBlocked   = "THUMBNAIL_BLOCKED"
	ErrCodeThumbnailFetch     = "THUMBNAIL_FETCH_FAILED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewUnauthorizedError は認証エラーを生成する。
// クレデンシャルの欠落・署名不正・期限切れのいずれでも同一のエラーを返す
// （詳細はログにのみ記録する）。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewCourseNotFoundError は講座未検出エラーを生成する。
func NewCourseNotFoundError(courseID string) *APIError {
	return &APIError{
		Code:     ErrCodeCourseNotFound,
		Message:  fmt.Sprintf("指定された講座が見つかりません: %s", courseID),
		Category: "enrollment",
		Action:   "講座一覧から再度お申し込みください。",
	}
}

// NewThumbnailBlockedError はサムネイルURLがセキュリティポリシーで
// ブロックされた場合のエラーを生成する。
func NewThumbnailBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeThumbnailBlocked,
		Message:  "セキュリティポリシーにより、サムネイル画像の取得がブロックされました。",
		Category: "validation",
		Action:   "講座のサムネイルURLが公開Webサイトを指しているか確認してください。",
	}
}

// NewThumbnailFetchError はサムネイル取得失敗エラーを生成する。
func NewThumbnailFetchError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeThumbnailFetch,
		Message:  fmt.Sprintf("サムネイル画像の取得に失敗しました: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewServiceUnavailableError はストアまたはIdP接続障害による
// 一時的エラーを生成する。
func NewServiceUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeServiceUnavailable,
		Message:  "サービスが一時的に利用できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
