package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/truefeedback/inbox-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory account repository mirroring the Mongo semantics
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.Account
	nextID   int
	findErr  error
	sets     int
	appended int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	clone := *a
	clone.Messages = nil // finders do not load the inbox
	return &clone
}

func (r *stubAccountRepo) find(match func(*domain.Account) bool) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, a := range r.byID {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.ID == id })
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Username == username })
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Email == email })
}

func (r *stubAccountRepo) FindByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Email == identifier || a.Username == identifier })
}

func (r *stubAccountRepo) Create(_ context.Context, account *domain.Account) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == account.Username {
			return "", domain.ErrUsernameTaken
		}
		if a.IsVerified && account.IsVerified && a.Email == account.Email {
			return "", domain.ErrEmailInUse
		}
	}
	r.nextID++
	clone := *account
	clone.ID = "acc_" + strconv.Itoa(r.nextID)
	r.byID[clone.ID] = &clone
	return clone.ID, nil
}

func (r *stubAccountRepo) RefreshPending(_ context.Context, id, passwordHash, code string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.IsVerified {
		return domain.ErrEmailInUse
	}
	a.PasswordHash = passwordHash
	a.VerifyCode = code
	a.VerifyExpiry = expiry
	return nil
}

func (r *stubAccountRepo) MarkVerified(_ context.Context, id, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.IsVerified || a.VerifyCode != code {
		return domain.ErrIncorrectCode
	}
	for _, other := range r.byID {
		if other.ID != id && other.IsVerified && other.Email == a.Email {
			return domain.ErrEmailInUse
		}
	}
	a.IsVerified = true
	a.VerifyCode = ""
	a.VerifyExpiry = time.Time{}
	return nil
}

func (r *stubAccountRepo) ReleaseStalePending(_ context.Context, username string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.byID {
		if a.Username == username && !a.IsVerified && a.VerifyExpiry.Before(now) {
			delete(r.byID, id)
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAccountRepo) SetAcceptingMessages(_ context.Context, id string, accept bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.IsAcceptingMessages = accept
	r.sets++
	return nil
}

func (r *stubAccountRepo) AppendMessage(_ context.Context, accountID string, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok || !a.IsAcceptingMessages {
		return domain.ErrNotAccepting
	}
	a.Messages = append(a.Messages, msg)
	r.appended++
	return nil
}

func (r *stubAccountRepo) ListMessages(_ context.Context, accountID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return nil, nil
	}
	out := append([]domain.Message(nil), a.Messages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *stubAccountRepo) DeleteMessage(_ context.Context, accountID, messageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return false, nil
	}
	for i, m := range a.Messages {
		if m.ID == messageID {
			a.Messages = append(a.Messages[:i], a.Messages[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// raw returns the stored record including its inbox. Test-only.
func (r *stubAccountRepo) raw(username string) *domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == username {
			clone := *a
			clone.Messages = append([]domain.Message(nil), a.Messages...)
			return &clone
		}
	}
	return nil
}

func (r *stubAccountRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// seedVerified stores a verified, accepting account and returns its id.
func (r *stubAccountRepo) seedVerified(username, email string) string {
	id, err := r.Create(context.Background(), &domain.Account{
		Username:            username,
		Email:               email,
		IsVerified:          true,
		IsAcceptingMessages: true,
	})
	if err != nil {
		panic(err)
	}
	return id
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type sentCode struct {
	email, username, code string
}

type stubSender struct {
	mu   sync.Mutex
	err  error
	sent []sentCode
}

func (s *stubSender) SendCode(_ context.Context, email, username, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentCode{email: email, username: username, code: code})
	return nil
}

func (s *stubSender) last() sentCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

type stubDedup struct {
	mu         sync.Mutex
	seen       map[string]bool
	reserveErr error
	released   int
}

func newStubDedup() *stubDedup { return &stubDedup{seen: make(map[string]bool)} }

// Reserve has SET NX semantics: only the first caller per key wins.
func (d *stubDedup) Reserve(_ context.Context, recipient, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reserveErr != nil {
		return false, d.reserveErr
	}
	k := recipient + ":" + key
	if d.seen[k] {
		return false, nil
	}
	d.seen[k] = true
	return true, nil
}

func (d *stubDedup) Release(_ context.Context, recipient, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, recipient+":"+key)
	d.released++
	return nil
}
