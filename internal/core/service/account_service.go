package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/truefeedback/inbox-api/internal/core/domain"
	"github.com/truefeedback/inbox-api/internal/core/ports"
)

const defaultSendTimeout = 10 * time.Second

// AccountOptions tunes AccountService. Zero values pick the defaults.
type AccountOptions struct {
	JWTSecret   string
	TokenTTL    time.Duration
	SendTimeout time.Duration
}

// AccountService implements signup, code verification and sign-in.
type AccountService struct {
	repo        ports.AccountRepository
	issuer      *CodeIssuer
	sender      ports.CodeSender
	log         zerolog.Logger
	jwtSecret   string
	tokenTTL    time.Duration
	sendTimeout time.Duration
	now         func() time.Time
}

func NewAccountService(
	repo ports.AccountRepository,
	issuer *CodeIssuer,
	sender ports.CodeSender,
	log zerolog.Logger,
	opts AccountOptions,
) *AccountService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	return &AccountService{
		repo:        repo,
		issuer:      issuer,
		sender:      sender,
		log:         log,
		jwtSecret:   opts.JWTSecret,
		tokenTTL:    opts.TokenTTL,
		sendTimeout: opts.SendTimeout,
		now:         time.Now,
	}
}

// Signup registers a new pending account, or refreshes the credentials and
// code of an abandoned one registered under the same email. A delivery
// failure is reported through SignupResult.CodeDelivered, never rolled back.
func (s *AccountService) Signup(ctx context.Context, in ports.SignupInput) (*ports.SignupResult, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	now := s.now().UTC()

	holder, err := s.repo.FindByUsername(ctx, in.Username)
	switch {
	case err == nil && holder.IsVerified:
		return nil, domain.ErrUsernameTaken
	case err == nil && holder.Email != email && holder.PendingClaimExpired(now):
		released, relErr := s.repo.ReleaseStalePending(ctx, in.Username, now)
		if relErr != nil {
			return nil, fmt.Errorf("signup: release stale username: %w", relErr)
		}
		if released {
			s.log.Info().Str("username", in.Username).Msg("released expired pending signup")
		}
	case err != nil && !errors.Is(err, domain.ErrAccountNotFound):
		return nil, fmt.Errorf("signup: lookup username: %w", err)
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("signup: lookup email: %w", err)
	}
	if existing != nil && existing.IsVerified {
		return nil, domain.ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}
	code, expiry, err := s.issuer.Issue()
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	result := &ports.SignupResult{Username: in.Username, Email: email}
	if existing != nil {
		if err := s.repo.RefreshPending(ctx, existing.ID, string(hash), code, expiry); err != nil {
			return nil, fmt.Errorf("signup: refresh pending: %w", err)
		}
		// username is immutable; the refreshed record keeps the one it was created with
		result.Username = existing.Username
		result.Refreshed = true
	} else {
		account := &domain.Account{
			Username:            in.Username,
			Email:               email,
			PasswordHash:        string(hash),
			VerifyCode:          code,
			VerifyExpiry:        expiry,
			IsVerified:          false,
			IsAcceptingMessages: true,
			Messages:            []domain.Message{},
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if _, err := s.repo.Create(ctx, account); err != nil {
			return nil, fmt.Errorf("signup: create: %w", err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	if err := s.sender.SendCode(sendCtx, email, result.Username, code); err != nil {
		s.log.Error().Err(err).Str("username", result.Username).Msg("verification email dispatch failed")
		return result, nil
	}
	result.CodeDelivered = true

	s.log.Info().
		Str("username", result.Username).
		Bool("refreshed", result.Refreshed).
		Msg("signup stored")
	return result, nil
}

// Verify checks code against the pending account addressed by the
// URL-encoded username and marks it verified on success.
func (s *AccountService) Verify(ctx context.Context, username, code string) error {
	if username == "" || code == "" {
		return domain.ErrInvalidInput
	}
	decoded, err := url.PathUnescape(username)
	if err != nil {
		return domain.ErrInvalidUsername
	}

	account, err := s.repo.FindByUsername(ctx, decoded)
	if err != nil {
		return err
	}

	// verified accounts hold no code, so any submission is a stale replay
	if account.IsVerified || account.VerifyCode == "" {
		return domain.ErrIncorrectCode
	}

	codeValid := subtle.ConstantTimeCompare([]byte(account.VerifyCode), []byte(code)) == 1
	notExpired := !account.CodeExpired(s.now())

	switch {
	case codeValid && notExpired:
		if err := s.repo.MarkVerified(ctx, account.ID, account.VerifyCode); err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		s.log.Info().Str("username", decoded).Msg("account verified")
		return nil
	case !notExpired:
		return domain.ErrCodeExpired
	default:
		return domain.ErrIncorrectCode
	}
}

// UsernameAvailable reports whether username can still be claimed by a signup.
// Only verified accounts hold a username for good.
func (s *AccountService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, domain.ErrInvalidInput
	}
	account, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !account.IsVerified, nil
}

// SignIn authenticates a verified account by email or username and returns a
// signed owner session token.
func (s *AccountService) SignIn(ctx context.Context, identifier, password string) (string, *domain.Account, error) {
	if identifier == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByIdentifier(ctx, identifier)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !account.IsVerified {
		return "", nil, domain.ErrAccountNotVerified
	}

	token, err := s.generateToken(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

func (s *AccountService) generateToken(account *domain.Account) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      account.ID,
		"username": account.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
