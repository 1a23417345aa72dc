package idp

import (
	"fmt"
	"strings"
)

// ErrorKind はIdPエラーの分類を表す。
// UI側はこの分類に基づいて文言や導線（未登録ならサインアップへ誘導等）を決める。
type ErrorKind string

const (
	// KindUserNotFound は該当ユーザーが存在しないことを示す。
	KindUserNotFound ErrorKind = "user_not_found"
	// KindWrongPassword はパスワード不一致を示す。
	KindWrongPassword ErrorKind = "wrong_password"
	// KindEmailInUse はメールアドレスが登録済みであることを示す。
	KindEmailInUse ErrorKind = "email_in_use"
	// KindWeakPassword はパスワードが要件を満たさないことを示す。
	KindWeakPassword ErrorKind = "weak_password"
	// KindInvalidEmail はメールアドレス形式の不正を示す。
	KindInvalidEmail ErrorKind = "invalid_email"
	// KindNetwork はIdPへの到達失敗を示す。
	KindNetwork ErrorKind = "network"
	// KindUnknown は上記以外のIdPエラーを示す。
	KindUnknown ErrorKind = "unknown"
)

// AuthError はIdPが返したエラーを分類付きで表す。
// IdPの生のエラーコードをUIにそのまま見せないための変換層。
type AuthError struct {
	Kind    ErrorKind
	Message string // 日本語のユーザー向けメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// kindMessages はエラー分類ごとのユーザー向けメッセージ。
var kindMessages = map[ErrorKind]string{
	KindUserNotFound:  "このメールアドレスは登録されていません。新規登録してください。",
	KindWrongPassword: "メールアドレスまたはパスワードが正しくありません。",
	KindEmailInUse:    "このメールアドレスは既に登録されています。ログインしてください。",
	KindWeakPassword:  "パスワードは6文字以上で設定してください。",
	KindInvalidEmail:  "メールアドレスの形式が正しくありません。",
	KindNetwork:       "サーバーに接続できません。しばらく待ってから再度お試しください。",
	KindUnknown:       "エラーが発生しました。しばらく待ってから再度お試しください。",
}

// newAuthError は分類からAuthErrorを生成する。
func newAuthError(kind ErrorKind) *AuthError {
	return &AuthError{Kind: kind, Message: kindMessages[kind]}
}

// classifyIdPError はIdPのエラーコード文字列をErrorKindに変換する。
// コードは "EMAIL_NOT_FOUND" や "WEAK_PASSWORD : ..." のような形式で返る。
func classifyIdPError(code string) ErrorKind {
	switch {
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"):
		return KindUserNotFound
	case strings.HasPrefix(code, "INVALID_PASSWORD"), strings.HasPrefix(code, "INVALID_LOGIN_CREDENTIALS"):
		return KindWrongPassword
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return KindEmailInUse
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return KindWeakPassword
	case strings.HasPrefix(code, "INVALID_EMAIL"):
		return KindInvalidEmail
	default:
		return KindUnknown
	}
}
