// Package model はドメインモデルを定義する。
package model

import "time"

// Enrollment はユーザーと講座の受講登録事実を表す。
// 受講登録ストアが所有する追記専用のレコードであり、
// アプリケーションは権威あるコピーを保持しない。
// (user_id, course_id) ごとに高々1件が意図された不変条件だが、
// 現行設計ではストア層・アプリケーション層のどちらでも強制されない
// （重複登録は既知のギャップとして残している）。
type Enrollment struct {
	ID         string
	UserID     string // 検証済みクレデンシャルから導出されたユーザーID
	CourseID   string
	EnrolledAt time.Time
}

// ContactOption は問い合わせの回答オプションを表す。
type ContactOption string

const (
	// ContactOptionPaid は有償回答を表す。
	ContactOptionPaid ContactOption = "paid"
	// ContactOptionConsultation はオンライン有償相談を表す。
	ContactOptionConsultation ContactOption = "consultation"
	// ContactOptionFree は無償回答を表す。
	ContactOptionFree ContactOption = "free"
)

// ContactMessage は問い合わせフォームから送信されたメッセージを表す。
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Option    ContactOption
	Message   string // サニタイズ済み
	CreatedAt time.Time
}
