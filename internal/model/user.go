// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーのプロフィールを表す。
// IDはIDプロバイダーが発行する安定した不透明なuidであり、
// 検証済みトークンによる初回リクエスト時に自動作成される。
type User struct {
	ID        string // IdPのuid
	Email     string
	Name      string
	Provider  string // 使用された認証方式（"password", "google.com", "github.com" 等）
	CreatedAt time.Time
	UpdatedAt time.Time
}
