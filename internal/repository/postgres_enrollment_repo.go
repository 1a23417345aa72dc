package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/techknots/internal/model"
)

// PostgresEnrollmentRepo はPostgreSQLを使用した受講登録リポジトリ。
// 受講登録は追記専用であり、このリポジトリはINSERTと参照のみを提供する。
type PostgresEnrollmentRepo struct {
	db *sql.DB
}

// NewPostgresEnrollmentRepo はPostgresEnrollmentRepoを生成する。
func NewPostgresEnrollmentRepo(db *sql.DB) *PostgresEnrollmentRepo {
	return &PostgresEnrollmentRepo{db: db}
}

// Create は受講登録レコードを1件追記する。
// (user_id, course_id) の一意性はストア層でもここでも強制しない。
// 同一ペアの2回目の呼び出しは2件目のレコードを生成する。
func (r *PostgresEnrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO enrollments (id, user_id, course_id, enrolled_at)
		 VALUES ($1, $2, $3, $4)`,
		enrollment.ID, enrollment.UserID, enrollment.CourseID, enrollment.EnrolledAt,
	)
	if err != nil {
		return fmt.Errorf("受講登録の追記に失敗しました: %w", err)
	}
	return nil
}

// ListCourseIDsByUser はユーザーが登録済みの講座ID集合を返す。
// 重複レコードはDISTINCTで畳み込む。
func (r *PostgresEnrollmentRepo) ListCourseIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT course_id FROM enrollments WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("受講登録一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var courseIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("受講登録の読み取りに失敗しました: %w", err)
		}
		courseIDs = append(courseIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("受講登録一覧の走査に失敗しました: %w", err)
	}

	return courseIDs, nil
}

// compile-time interface check
var _ EnrollmentRepository = (*PostgresEnrollmentRepo)(nil)
