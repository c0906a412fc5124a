package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/truefeedback/inbox-api/internal/core/domain"
	"github.com/truefeedback/inbox-api/internal/core/ports"
)

type acceptanceService struct {
	repo ports.AccountRepository
	log  zerolog.Logger
}

// NewAcceptanceService returns the gate over is_accepting_messages. Every call is
// scoped to the account named by the owner session, so one owner can never
// flip another account's flag.
func NewAcceptanceService(repo ports.AccountRepository, log zerolog.Logger) ports.AcceptanceService {
	return &acceptanceService{repo: repo, log: log}
}

func (s *acceptanceService) Get(ctx context.Context, owner ports.OwnerSession) (bool, error) {
	if owner.AccountID == "" {
		return false, domain.ErrNoSession
	}
	account, err := s.repo.FindByID(ctx, owner.AccountID)
	if err != nil {
		return false, fmt.Errorf("get acceptance: %w", err)
	}
	return account.IsAcceptingMessages, nil
}

func (s *acceptanceService) Set(ctx context.Context, owner ports.OwnerSession, accept bool) (bool, error) {
	if owner.AccountID == "" {
		return false, domain.ErrNoSession
	}
	if err := s.repo.SetAcceptingMessages(ctx, owner.AccountID, accept); err != nil {
		return false, fmt.Errorf("set acceptance: %w", err)
	}
	s.log.Info().Str("account_id", owner.AccountID).Bool("accepting", accept).Msg("acceptance updated")
	return accept, nil
}
