package domain

import "errors"

// Kind groups domain errors by how the caller is expected to react.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindExpired      Kind = "expired"
	KindPolicy       Kind = "policy"
	KindDependency   Kind = "dependency"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidUsername = errors.New("invalid username format")
	ErrInvalidContent  = errors.New("message content is empty or too long")

	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmailInUse    = errors.New("email is already in use")

	ErrAccountNotFound   = errors.New("account not found")
	ErrRecipientNotFound = errors.New("recipient not found")

	ErrCodeExpired   = errors.New("verification code expired")
	ErrIncorrectCode = errors.New("incorrect verification code")

	ErrNotAccepting = errors.New("recipient is not accepting messages")

	ErrCodeDelivery = errors.New("verification code delivery failed")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotVerified = errors.New("account is not verified")
	ErrNoSession          = errors.New("owner session required")
)

// kinds is ordered: when a chain wraps several sentinels the first listed wins.
var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidInput, KindValidation},
	{ErrInvalidUsername, KindValidation},
	{ErrInvalidContent, KindValidation},
	{ErrIncorrectCode, KindValidation},
	{ErrUsernameTaken, KindConflict},
	{ErrEmailInUse, KindConflict},
	{ErrAccountNotFound, KindNotFound},
	{ErrRecipientNotFound, KindNotFound},
	{ErrCodeExpired, KindExpired},
	{ErrNotAccepting, KindPolicy},
	{ErrAccountNotVerified, KindPolicy},
	{ErrCodeDelivery, KindDependency},
	{ErrInvalidCredentials, KindUnauthorized},
	{ErrNoSession, KindUnauthorized},
}

// KindOf classifies err by the first listed sentinel found in its chain.
// Unknown errors are KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
