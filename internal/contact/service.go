// Package contact は問い合わせフォームの機能を提供する。
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/techknots/internal/model"
	"github.com/hitoshi/techknots/internal/repository"
	"github.com/hitoshi/techknots/internal/security"
)

// 入力値の上限。フォーム側の制限と合わせてある。
const (
	maxNameLength    = 100
	maxMessageLength = 4000
)

// validOptions は有効な回答オプションのセット。
var validOptions = map[model.ContactOption]bool{
	model.ContactOptionPaid:         true,
	model.ContactOptionConsultation: true,
	model.ContactOptionFree:         true,
}

// Service は問い合わせメッセージのサービス。
// 問い合わせは未認証でも送信できるため、入力はすべて検証・サニタイズする。
type Service struct {
	contactRepo repository.ContactRepository
	sanitizer   security.ContentSanitizerService
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	contactRepo repository.ContactRepository,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
) *Service {
	return &Service{
		contactRepo: contactRepo,
		sanitizer:   sanitizer,
		logger:      logger,
	}
}

// SubmitInput は問い合わせ送信の入力。
type SubmitInput struct {
	Name    string
	Email   string
	Option  model.ContactOption
	Message string
}

// Submit は問い合わせメッセージを検証・サニタイズして保存する。
// 検証失敗はINVALID_REQUESTエラーを返す。
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*model.ContactMessage, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.NewInvalidRequestError("お名前は必須です")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, model.NewInvalidRequestError("お名前が長すぎます")
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, model.NewInvalidRequestError("メールアドレスは必須です")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, model.NewInvalidRequestError("メールアドレスの形式が不正です")
	}

	if !validOptions[input.Option] {
		return nil, model.NewInvalidRequestError("回答オプションが不正です")
	}

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, model.NewInvalidRequestError("メッセージは必須です")
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, model.NewInvalidRequestError("メッセージが長すぎます")
	}

	msg := &model.ContactMessage{
		ID:        uuid.NewString(),
		Name:      s.sanitizer.SanitizeText(name),
		Email:     email,
		Option:    input.Option,
		Message:   s.sanitizer.SanitizeText(message),
		CreatedAt: time.Now(),
	}

	if err := s.contactRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create contact message: %w", err)
	}

	s.logger.Info("問い合わせメッセージを受け付けました",
		slog.String("contact_id", msg.ID),
		slog.String("option", string(msg.Option)),
	)

	return msg, nil
}
