package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/techknots/internal/contact"
	"github.com/hitoshi/techknots/internal/model"
)

// ContactServiceInterface は問い合わせハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	// Submit は問い合わせメッセージを検証・サニタイズして保存する。
	Submit(ctx context.Context, input contact.SubmitInput) (*model.ContactMessage, error)
}

// ContactHandler は問い合わせフォームのHTTPハンドラー。
type ContactHandler struct {
	service ContactServiceInterface
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface) *ContactHandler {
	return &ContactHandler{service: service}
}

// contactRequest は問い合わせ送信リクエストのボディ。
type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Option  string `json:"option"`
	Message string `json:"message"`
}

// contactSubmitResponse は問い合わせ受付レスポンス。
type contactSubmitResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// Submit は問い合わせ送信を処理する。認証不要。
// POST /api/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	msg, err := h.service.Submit(r.Context(), contact.SubmitInput{
		Name:    req.Name,
		Email:   req.Email,
		Option:  model.ContactOption(req.Option),
		Message: req.Message,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(contactSubmitResponse{
		Success: true,
		ID:      msg.ID,
	})
}
