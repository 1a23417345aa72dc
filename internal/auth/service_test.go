package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/techknots/internal/model"
)

// mockUserRepo はUserRepositoryのモック実装。
type mockUserRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
	createFunc   func(ctx context.Context, user *model.User) error
	created      []*model.User
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	m.created = append(m.created, user)
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_EnsureUser_ExistingUser(t *testing.T) {
	existing := &model.User{ID: "user-abc", Email: "taro@example.com"}
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			if id != "user-abc" {
				t.Errorf("FindByID id = %q, want %q", id, "user-abc")
			}
			return existing, nil
		},
	}
	svc := NewService(repo, testLogger())

	user, err := svc.EnsureUser(context.Background(), &IDToken{UID: "user-abc"})
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	if user != existing {
		t.Error("既存ユーザーがそのまま返されていません")
	}
	if len(repo.created) != 0 {
		t.Errorf("既存ユーザーなのにCreateが %d 回呼ばれました", len(repo.created))
	}
}

func TestService_EnsureUser_CreatesNewUser(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, testLogger())

	token := &IDToken{
		UID:      "user-new",
		Email:    "hanako@example.com",
		Name:     "佐藤花子",
		Provider: "google.com",
	}
	user, err := svc.EnsureUser(context.Background(), token)
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("Create calls = %d, want 1", len(repo.created))
	}
	if user.ID != "user-new" || user.Email != "hanako@example.com" || user.Provider != "google.com" {
		t.Errorf("作成されたユーザーが不正: %+v", user)
	}
	// INSERTはCreatedAt/UpdatedAtを明示的に書き込むため、ゼロ値のままだと
	// 年0001のタイムスタンプが永続化されてしまう
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Errorf("タイムスタンプが設定されていません: CreatedAt=%v UpdatedAt=%v",
			user.CreatedAt, user.UpdatedAt)
	}
}

func TestService_EnsureUser_RepositoryError(t *testing.T) {
	repoErr := errors.New("db down")
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return nil, repoErr
		},
	}
	svc := NewService(repo, testLogger())

	if _, err := svc.EnsureUser(context.Background(), &IDToken{UID: "user-abc"}); !errors.Is(err, repoErr) {
		t.Errorf("リポジトリのエラーが伝播していません: %v", err)
	}
}
