// Package browse はコース一覧画面の表示状態を管理する。
// カテゴリとサブカテゴリの導出、選択による絞り込み、
// 読み込み中フラグを提供する。描画そのものは扱わない。
package browse

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/techknots/internal/apiclient"
)

// CourseLister はコース一覧の取得操作。apiclient.Client が満たす。
type CourseLister interface {
	ListCourses(ctx context.Context) ([]apiclient.Course, error)
}

var _ CourseLister = (*apiclient.Client)(nil)

// AllCategories は絞り込みなしを表すカテゴリ値。
const AllCategories = ""

// View はコース一覧の絞り込み状態。カテゴリの選択はサブカテゴリの
// 選択をリセットする(サブカテゴリはカテゴリ内でのみ意味を持つ)。
type View struct {
	lister CourseLister
	logger *slog.Logger

	mu          sync.Mutex
	courses     []apiclient.Course
	loading     bool
	category    string
	subCategory string
}

// NewView は View を生成する。コース一覧は Load を呼ぶまで空。
func NewView(lister CourseLister, logger *slog.Logger) *View {
	return &View{lister: lister, logger: logger}
}

// Load はコース一覧を取得する。取得中は Loading が true を返す。
// 取得に失敗した場合は致命的に扱わず、空の一覧を表示する。
func (v *View) Load(ctx context.Context) {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()

	courses, err := v.lister.ListCourses(ctx)
	if err != nil {
		v.logger.Warn("コース一覧の取得に失敗しました", "error", err)
		courses = nil
	}

	v.mu.Lock()
	v.courses = courses
	v.loading = false
	v.mu.Unlock()
}

// Loading は読み込み中かどうかを返す。
func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Categories は一覧中のカテゴリを出現順で重複なく返す。
func (v *View) Categories() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	seen := make(map[string]struct{})
	categories := []string{}
	for _, c := range v.courses {
		if c.Category == "" {
			continue
		}
		if _, ok := seen[c.Category]; ok {
			continue
		}
		seen[c.Category] = struct{}{}
		categories = append(categories, c.Category)
	}
	return categories
}

// SubCategories は選択中カテゴリ内のサブカテゴリを出現順で返す。
// カテゴリ未選択のときは空を返す。
func (v *View) SubCategories() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.category == AllCategories {
		return []string{}
	}
	seen := make(map[string]struct{})
	subs := []string{}
	for _, c := range v.courses {
		if c.Category != v.category || c.SubCategory == "" {
			continue
		}
		if _, ok := seen[c.SubCategory]; ok {
			continue
		}
		seen[c.SubCategory] = struct{}{}
		subs = append(subs, c.SubCategory)
	}
	return subs
}

// SelectCategory はカテゴリを選択し、サブカテゴリの選択をリセットする。
func (v *View) SelectCategory(category string) {
	v.mu.Lock()
	v.category = category
	v.subCategory = ""
	v.mu.Unlock()
}

// SelectSubCategory はサブカテゴリを選択する。
func (v *View) SelectSubCategory(subCategory string) {
	v.mu.Lock()
	v.subCategory = subCategory
	v.mu.Unlock()
}

// Filtered は現在の選択で絞り込んだコース一覧を返す。
func (v *View) Filtered() []apiclient.Course {
	v.mu.Lock()
	defer v.mu.Unlock()

	filtered := []apiclient.Course{}
	for _, c := range v.courses {
		if v.category != AllCategories && c.Category != v.category {
			continue
		}
		if v.subCategory != "" && c.SubCategory != v.subCategory {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}
