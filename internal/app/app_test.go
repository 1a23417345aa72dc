package app

import (
	"io"
	"strings"
	"testing"
)

func TestInit_MissingRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("IDP_PROJECT_ID", "")

	if _, err := Init(io.Discard); err == nil {
		t.Error("必須環境変数なしでInitが成功しました")
	}
}

func TestInit_LoadsConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/techknots?sslmode=disable")
	t.Setenv("IDP_PROJECT_ID", "techknots-test")

	cfg, err := Init(io.Discard)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if cfg.IdPProjectID != "techknots-test" {
		t.Errorf("IdPProjectID = %q", cfg.IdPProjectID)
	}
}

func TestRunHealthcheck_NoServer(t *testing.T) {
	// 何もリッスンしていないポートに対するヘルスチェックは失敗する
	if err := runHealthcheck("59999"); err == nil {
		t.Error("サーバー不在なのにヘルスチェックが成功しました")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	masked := maskDatabaseURL("postgres://user:secret@db:5432/techknots")
	if strings.Contains(masked, "secret") {
		t.Errorf("マスク後も認証情報が含まれています: %q", masked)
	}

	if got := maskDatabaseURL("short"); got != "***" {
		t.Errorf("短いURLのマスク結果 = %q, want ***", got)
	}
}
