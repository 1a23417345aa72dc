// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/techknots/internal/model"
)

// UserRepository はユーザープロフィールの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザープロフィールを作成する。
	// 検証済みトークンの初回リクエスト時の自動作成で使用する。
	Create(ctx context.Context, user *model.User) error
}

// CourseRepository は講座カタログの読み取りインターフェース。
// カタログはアプリケーションから見て読み取り専用。
type CourseRepository interface {
	// ListAll は全講座をストア定義の順序で返す。順序に契約はない。
	ListAll(ctx context.Context) ([]*model.Course, error)

	// FindByID は指定IDの講座を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Course, error)
}

// EnrollmentRepository は受講登録事実の永続化インターフェース。
// 追記専用であり、更新・削除操作は提供しない。
type EnrollmentRepository interface {
	// Create は受講登録レコードを1件追記する。
	// (user_id, course_id) の重複チェックは行わない。
	Create(ctx context.Context, enrollment *model.Enrollment) error

	// ListCourseIDsByUser はユーザーが登録済みの講座ID集合を返す。
	// 重複レコードが存在しても講座IDは1回だけ含まれる。
	ListCourseIDsByUser(ctx context.Context, userID string) ([]string, error)
}

// ContactRepository は問い合わせメッセージの永続化インターフェース。
type ContactRepository interface {
	// Create は問い合わせメッセージを保存する。
	Create(ctx context.Context, msg *model.ContactMessage) error
}
