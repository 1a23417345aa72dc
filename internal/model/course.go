// Package model はドメインモデルを定義する。
package model

import "time"

// Course は講座カタログの講座を表す。
// カタログはアプリケーションから見て読み取り専用であり、
// 講座の作成・編集はカタログ管理側（外部）で行われる。
type Course struct {
	ID          string
	Title       string
	Description string // サニタイズ済みHTML
	Category    string // 任意のグルーピングキー
	SubCategory string // Category内でのみ意味を持つ
	Price       *float64 // nilは無料を表す
	Thumbnail   string // サムネイル画像のURL
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsFree は講座が無料かどうかを返す。
func (c *Course) IsFree() bool {
	return c.Price == nil || *c.Price == 0
}
