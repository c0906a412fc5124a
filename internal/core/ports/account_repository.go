package ports

import (
	"context"
	"time"

	"github.com/truefeedback/inbox-api/internal/core/domain"
)

// AccountRepository defines persistence for accounts and their embedded inbox.
// Lookups return domain.ErrAccountNotFound when nothing matches. Finders do not
// load the message collection; use ListMessages for that.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	// FindByIdentifier matches either the email or the username.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)

	// Create inserts a new unverified account and returns its id. Unique index
	// violations surface as domain.ErrUsernameTaken or domain.ErrEmailInUse.
	Create(ctx context.Context, account *domain.Account) (string, error)
	// RefreshPending overwrites the credential hash and verification code of an
	// account that is still unverified. It returns domain.ErrEmailInUse when the
	// account was verified in the meantime.
	RefreshPending(ctx context.Context, id, passwordHash, code string, expiry time.Time) error
	// MarkVerified flips is_verified and clears the code, but only while the
	// stored code still equals code. A lost race yields domain.ErrIncorrectCode.
	MarkVerified(ctx context.Context, id, code string) error
	// ReleaseStalePending deletes an unverified account holding username whose
	// code expired before now. It reports whether a record was removed.
	ReleaseStalePending(ctx context.Context, username string, now time.Time) (bool, error)

	SetAcceptingMessages(ctx context.Context, id string, accept bool) error

	// AppendMessage atomically pushes msg onto the inbox of the account, provided
	// it is still accepting messages. Otherwise it returns domain.ErrNotAccepting.
	AppendMessage(ctx context.Context, accountID string, msg domain.Message) error
	// ListMessages returns the inbox newest-first.
	ListMessages(ctx context.Context, accountID string) ([]domain.Message, error)
	// DeleteMessage pulls one message from the owner's inbox and reports
	// whether anything was removed.
	DeleteMessage(ctx context.Context, accountID, messageID string) (bool, error)
}

// SubmissionDedup remembers idempotency keys of accepted submissions.
// Reserve is atomic: of concurrent callers with the same key exactly one
// gets true. Release frees a reservation whose submission was not stored.
type SubmissionDedup interface {
	Reserve(ctx context.Context, recipient, key string) (bool, error)
	Release(ctx context.Context, recipient, key string) error
}
