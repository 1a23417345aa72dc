package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/techknots/internal/model"
	"github.com/hitoshi/techknots/internal/repository"
)

// Service は検証済みトークンとユーザープロフィールの対応付けを担う。
type Service struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, logger *slog.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		logger:   logger,
	}
}

// EnsureUser は検証済みトークンに対応するユーザープロフィールを返す。
// 初回リクエスト時はプロフィールを自動作成する。
// 作成が同時リクエストと競合した場合も既存行を壊さない（INSERTは冪等）。
func (s *Service) EnsureUser(ctx context.Context, token *IDToken) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, token.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	now := time.Now()
	user = &model.User{
		ID:        token.UID,
		Email:     token.Email,
		Name:      token.Name,
		Provider:  token.Provider,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("新規ユーザーのプロフィールを作成しました",
		slog.String("user_id", user.ID),
		slog.String("provider", user.Provider))

	return user, nil
}
