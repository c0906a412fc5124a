package handler

import (
	"time"

	"github.com/truefeedback/inbox-api/internal/core/domain"
)

// --- Requests ---

type signUpRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type verifyCodeRequest struct {
	Username string `json:"username" validate:"required"`
	Code     string `json:"code"     validate:"required"`
}

type signInRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password"   validate:"required"`
}

type usernameQuery struct {
	Username string `query:"username" validate:"required,username"`
}

type acceptMessagesRequest struct {
	AcceptMessages *bool `json:"acceptMessages" validate:"required"`
}

type sendMessageRequest struct {
	Username string `json:"username" validate:"required"`
	Content  string `json:"content"`
}

type suggestRequest struct {
	Topic string `json:"topic" validate:"max=100"`
}

// --- Responses ---

type signInResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

type acceptanceStatusResponse struct {
	Success             bool `json:"success"`
	IsAcceptingMessages bool `json:"isAcceptingMessages"`
}

type acceptanceUpdateResponse struct {
	Success             bool   `json:"success"`
	Message             string `json:"message"`
	IsAcceptingMessages bool   `json:"isAcceptingMessages"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type messagesResponse struct {
	Success  bool              `json:"success"`
	Messages []messageResponse `json:"messages"`
}

type suggestionsResponse struct {
	Success     bool     `json:"success"`
	Suggestions []string `json:"suggestions"`
}

func toMessageResponses(msgs []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return out
}
