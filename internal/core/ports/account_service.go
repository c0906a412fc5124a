package ports

import (
	"context"

	"github.com/truefeedback/inbox-api/internal/core/domain"
)

// SignupInput carries the fields submitted on the signup form.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// SignupResult describes the stored pending account.
type SignupResult struct {
	Username string
	Email    string
	// Refreshed is true when an abandoned unverified signup was reused.
	Refreshed bool
	// CodeDelivered is false when the account was written but the email
	// collaborator failed. The caller should ask the user to sign up again.
	CodeDelivered bool
}

// OwnerSession identifies the account an authenticated request acts for.
type OwnerSession struct {
	AccountID string
	Username  string
}

// AccountService covers signup, verification and sign-in.
type AccountService interface {
	Signup(ctx context.Context, in SignupInput) (*SignupResult, error)
	Verify(ctx context.Context, username, code string) error
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	SignIn(ctx context.Context, identifier, password string) (string, *domain.Account, error)
}

// AcceptanceService reads and writes the acceptance flag of the session's account.
type AcceptanceService interface {
	Get(ctx context.Context, owner OwnerSession) (bool, error)
	Set(ctx context.Context, owner OwnerSession, accept bool) (bool, error)
}
