package domain

import "time"

// Account is the aggregate root: a registered identity that owns an inbox of
// anonymous messages.
type Account struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	VerifyCode          string
	VerifyExpiry        time.Time
	IsVerified          bool
	IsAcceptingMessages bool
	Messages            []Message
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CodeExpired reports whether the stored verification code is no longer usable at now.
func (a *Account) CodeExpired(now time.Time) bool {
	return !now.Before(a.VerifyExpiry)
}

// PendingClaimExpired reports whether an unverified account has outlived its
// verification window and may be released.
func (a *Account) PendingClaimExpired(now time.Time) bool {
	return !a.IsVerified && a.CodeExpired(now)
}

// Message is a single anonymous submission. It carries no reference to its sender.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// MaxMessageLength bounds the rune length of a message body.
const MaxMessageLength = 300
