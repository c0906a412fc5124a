package ports

import (
	"context"

	"github.com/truefeedback/inbox-api/internal/core/domain"
)

// SubmitInput is an anonymous submission addressed to a public username.
type SubmitInput struct {
	Username string
	Content  string
	// IdempotencyKey is optional; repeated keys are acknowledged without
	// storing a second copy.
	IdempotencyKey string
}

// SubmitResult is returned after a submission is stored.
type SubmitResult struct {
	Message  *domain.Message
	Replayed bool
}

// MessageService covers anonymous intake and owner custody of the inbox.
type MessageService interface {
	Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error)
	List(ctx context.Context, owner OwnerSession) ([]domain.Message, error)
	// Delete is idempotent: removing an unknown id succeeds with removed=false.
	Delete(ctx context.Context, owner OwnerSession, messageID string) (removed bool, err error)
}

// SuggestionService returns ready-to-send message ideas.
type SuggestionService interface {
	Suggest(ctx context.Context, topic string) ([]string, error)
}
