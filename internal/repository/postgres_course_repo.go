package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/techknots/internal/model"
)

// PostgresCourseRepo はPostgreSQLを使用した講座カタログリポジトリ。
// アプリケーションからの書き込みは行わない。
type PostgresCourseRepo struct {
	db *sql.DB
}

// NewPostgresCourseRepo はPostgresCourseRepoを生成する。
func NewPostgresCourseRepo(db *sql.DB) *PostgresCourseRepo {
	return &PostgresCourseRepo{db: db}
}

// ListAll は全講座をストア定義の順序で返す。
// 並び替え・グルーピングはクライアント側で行う。
func (r *PostgresCourseRepo) ListAll(ctx context.Context) ([]*model.Course, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, category, sub_category, price, thumbnail, created_at, updated_at
		 FROM courses`,
	)
	if err != nil {
		return nil, fmt.Errorf("講座一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var courses []*model.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("講座一覧の走査に失敗しました: %w", err)
	}

	return courses, nil
}

// FindByID は指定IDの講座を取得する。見つからない場合はnilを返す。
func (r *PostgresCourseRepo) FindByID(ctx context.Context, id string) (*model.Course, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, category, sub_category, price, thumbnail, created_at, updated_at
		 FROM courses WHERE id = $1`,
		id,
	)

	course, err := scanCourse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return course, nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCourse は1行を講座モデルに変換する。
func scanCourse(row rowScanner) (*model.Course, error) {
	course := &model.Course{}
	var price sql.NullFloat64

	err := row.Scan(
		&course.ID, &course.Title, &course.Description,
		&course.Category, &course.SubCategory,
		&price, &course.Thumbnail,
		&course.CreatedAt, &course.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("講座の読み取りに失敗しました: %w", err)
	}

	if price.Valid {
		course.Price = &price.Float64
	}

	return course, nil
}

// compile-time interface check
var _ CourseRepository = (*PostgresCourseRepo)(nil)
