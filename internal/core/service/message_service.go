package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/truefeedback/inbox-api/internal/core/domain"
	"github.com/truefeedback/inbox-api/internal/core/ports"
)

type messageService struct {
	repo  ports.AccountRepository
	dedup ports.SubmissionDedup
	log   zerolog.Logger
	now   func() time.Time
}

// NewMessageService returns intake and custody over account inboxes.
// dedup may be nil, in which case idempotency keys are ignored.
func NewMessageService(repo ports.AccountRepository, dedup ports.SubmissionDedup, log zerolog.Logger) ports.MessageService {
	return &messageService{
		repo:  repo,
		dedup: dedup,
		log:   log,
		now:   time.Now,
	}
}

// Submit validates an anonymous message and appends it to the recipient's inbox.
func (s *messageService) Submit(ctx context.Context, in ports.SubmitInput) (*ports.SubmitResult, error) {
	recipient, err := s.repo.FindByUsername(ctx, in.Username)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("submit: lookup recipient: %w", err)
	}
	// the public link only exists once the username is claimed for good
	if !recipient.IsVerified {
		return nil, domain.ErrRecipientNotFound
	}

	if !validContent(in.Content) {
		return nil, domain.ErrInvalidContent
	}

	if !recipient.IsAcceptingMessages {
		return nil, domain.ErrNotAccepting
	}

	reserved := false
	if in.IdempotencyKey != "" && s.dedup != nil {
		ok, err := s.dedup.Reserve(ctx, recipient.ID, in.IdempotencyKey)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("recipient", recipient.Username).Msg("dedup reserve failed, storing anyway")
		case !ok:
			s.log.Debug().Str("recipient", recipient.Username).Msg("duplicate submission acknowledged")
			return &ports.SubmitResult{Replayed: true}, nil
		default:
			reserved = true
		}
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		Content:   in.Content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.AppendMessage(ctx, recipient.ID, msg); err != nil {
		if reserved {
			if relErr := s.dedup.Release(ctx, recipient.ID, in.IdempotencyKey); relErr != nil {
				s.log.Warn().Err(relErr).Str("recipient", recipient.Username).Msg("failed to release dedup key")
			}
		}
		if errors.Is(err, domain.ErrNotAccepting) {
			return nil, err
		}
		return nil, fmt.Errorf("submit: append: %w", err)
	}

	s.log.Info().Str("recipient", recipient.Username).Str("message_id", msg.ID).Msg("message stored")
	return &ports.SubmitResult{Message: &msg}, nil
}

// validContent accepts any text that is not blank and fits MaxMessageLength.
// Content is stored exactly as submitted.
func validContent(raw string) bool {
	return strings.TrimSpace(raw) != "" && utf8.RuneCountInString(raw) <= domain.MaxMessageLength
}

func (s *messageService) List(ctx context.Context, owner ports.OwnerSession) ([]domain.Message, error) {
	if owner.AccountID == "" {
		return nil, domain.ErrNoSession
	}
	msgs, err := s.repo.ListMessages(ctx, owner.AccountID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

func (s *messageService) Delete(ctx context.Context, owner ports.OwnerSession, messageID string) (bool, error) {
	if owner.AccountID == "" {
		return false, domain.ErrNoSession
	}
	if messageID == "" {
		return false, domain.ErrInvalidInput
	}
	removed, err := s.repo.DeleteMessage(ctx, owner.AccountID, messageID)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	s.log.Info().
		Str("account_id", owner.AccountID).
		Str("message_id", messageID).
		Bool("removed", removed).
		Msg("message delete")
	return removed, nil
}
