package ports

import "context"

// CodeSender delivers a verification code to the owner of email.
type CodeSender interface {
	SendCode(ctx context.Context, email, username, code string) error
}

// Suggester produces conversation starters. The returned text separates
// individual suggestions with "||".
type Suggester interface {
	Suggest(ctx context.Context, topic string) (string, error)
}
