package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const (
	DefaultCodeTTL = time.Hour

	codeMin  = 100000
	codeSpan = 900000 // codes fall in [codeMin, codeMin+codeSpan)
)

// CodeIssuer produces 6-digit verification codes and their expiry.
type CodeIssuer struct {
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
}

// NewCodeIssuer returns an issuer whose codes live for ttl (DefaultCodeTTL when <= 0).
func NewCodeIssuer(ttl time.Duration) *CodeIssuer {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &CodeIssuer{ttl: ttl, now: time.Now, random: rand.Reader}
}

// Issue returns a code drawn uniformly from [100000, 999999] and the instant it expires.
func (i *CodeIssuer) Issue() (string, time.Time, error) {
	n, err := rand.Int(i.random, big.NewInt(codeSpan))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue code: %w", err)
	}
	code := fmt.Sprintf("%06d", codeMin+n.Int64())
	return code, i.now().UTC().Add(i.ttl), nil
}
