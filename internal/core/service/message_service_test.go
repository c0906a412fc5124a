package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truefeedback/inbox-api/internal/core/domain"
	"github.com/truefeedback/inbox-api/internal/core/ports"
)

func newMessageSvc(repo *stubAccountRepo, dedup ports.SubmissionDedup) (*messageService, *clock) {
	clk := &clock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	svc := NewMessageService(repo, dedup, zerolog.Nop()).(*messageService)
	svc.now = clk.Now
	return svc, clk
}

func TestMessageService_Submit_AppendsAndListsNewestFirst(t *testing.T) {
	repo := newStubAccountRepo()
	id := repo.seedVerified("alice", "a@x.com")
	svc, clk := newMessageSvc(repo, nil)

	first, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: "first"})
	require.NoError(t, err)
	clk.Advance(time.Minute)
	second, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: "hi"})
	require.NoError(t, err)

	assert.NotEmpty(t, second.Message.ID)
	assert.NotEqual(t, first.Message.ID, second.Message.ID)
	assert.Equal(t, clk.Now(), second.Message.CreatedAt)

	msgs, err := svc.List(context.Background(), ports.OwnerSession{AccountID: id})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, second.Message.ID, msgs[0].ID)
	assert.Equal(t, "first", msgs[1].Content)
}

func TestMessageService_Submit_NeverStoresWhenNotAccepting(t *testing.T) {
	repo := newStubAccountRepo()
	id := repo.seedVerified("alice", "a@x.com")
	require.NoError(t, repo.SetAcceptingMessages(context.Background(), id, false))
	svc, _ := newMessageSvc(repo, nil)

	for _, content := range []string{"hi", "  padded  ", "<b>bold</b>", strings.Repeat("x", 300)} {
		_, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: content})
		assert.ErrorIs(t, err, domain.ErrNotAccepting, "content %q", content)
	}
	assert.Empty(t, repo.raw("alice").Messages)
	assert.Zero(t, repo.appended)
}

func TestMessageService_Submit_RecipientNotFound(t *testing.T) {
	repo := newStubAccountRepo()
	svc, _ := newMessageSvc(repo, nil)

	_, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "ghost", Content: "hi"})
	assert.ErrorIs(t, err, domain.ErrRecipientNotFound)
}

func TestMessageService_Submit_UnverifiedRecipientIsUnknown(t *testing.T) {
	repo := newStubAccountRepo()
	_, err := repo.Create(context.Background(), &domain.Account{Username: "pending", Email: "p@x.com", IsAcceptingMessages: true})
	require.NoError(t, err)
	svc, _ := newMessageSvc(repo, nil)

	_, err = svc.Submit(context.Background(), ports.SubmitInput{Username: "pending", Content: "hi"})
	assert.ErrorIs(t, err, domain.ErrRecipientNotFound)
}

func TestMessageService_Submit_InvalidContent(t *testing.T) {
	repo := newStubAccountRepo()
	repo.seedVerified("alice", "a@x.com")
	svc, _ := newMessageSvc(repo, nil)

	cases := []string{"", "   ", "\n\t", strings.Repeat("y", 301)}
	for _, content := range cases {
		_, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: content})
		assert.ErrorIs(t, err, domain.ErrInvalidContent, "content %q", content)
	}
	assert.Empty(t, repo.raw("alice").Messages)
}

func TestMessageService_Submit_StoresContentVerbatim(t *testing.T) {
	repo := newStubAccountRepo()
	id := repo.seedVerified("alice", "a@x.com")
	svc, _ := newMessageSvc(repo, nil)

	cases := []string{
		"if x<y and y>z then",
		"<hello>",
		"use <T any> generics",
		"  you & me <b>rock</b>  ",
		strings.Repeat("é", domain.MaxMessageLength),
	}
	for _, content := range cases {
		res, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: content})
		require.NoError(t, err, "content %q", content)
		assert.Equal(t, content, res.Message.Content)
	}

	msgs, err := svc.List(context.Background(), ports.OwnerSession{AccountID: id})
	require.NoError(t, err)
	require.Len(t, msgs, len(cases))
	stored := make([]string, 0, len(msgs))
	for _, m := range msgs {
		stored = append(stored, m.Content)
	}
	assert.ElementsMatch(t, cases, stored)
}

func TestMessageService_Submit_ResolvesRecipientBeforeContent(t *testing.T) {
	svc, _ := newMessageSvc(newStubAccountRepo(), nil)

	for _, content := range []string{"", "   ", strings.Repeat("y", 301)} {
		_, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "ghost", Content: content})
		assert.ErrorIs(t, err, domain.ErrRecipientNotFound, "content %q", content)
	}
}

func TestMessageService_Submit_ToggleClosesRace(t *testing.T) {
	repo := newStubAccountRepo()
	id := repo.seedVerified("alice", "a@x.com")
	svc, _ := newMessageSvc(repo, nil)

	// flag flips between lookup and append
	racing := &toggleOnAppend{stubAccountRepo: repo, id: id}
	svc.repo = racing

	_, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotAccepting)
	assert.Empty(t, repo.raw("alice").Messages)
}

type toggleOnAppend struct {
	*stubAccountRepo
	id string
}

func (r *toggleOnAppend) AppendMessage(ctx context.Context, accountID string, msg domain.Message) error {
	_ = r.stubAccountRepo.SetAcceptingMessages(ctx, r.id, false)
	return r.stubAccountRepo.AppendMessage(ctx, accountID, msg)
}

func TestMessageService_Submit_ConcurrentSendersLoseNothing(t *testing.T) {
	repo := newStubAccountRepo()
	id := repo.seedVerified("alice", "a@x.com")
	svc, _ := newMessageSvc(repo, nil)

	const senders = 32
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: fmt.Sprintf("msg %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := svc.List(context.Background(), ports.OwnerSession{AccountID: id})
	require.NoError(t, err)
	assert.Len(t, msgs, senders)
}

func TestMessageService_Submit_IdempotencyKey(t *testing.T) {
	repo := newStubAccountRepo()
	repo.seedVerified("alice", "a@x.com")
	dedup := newStubDedup()
	svc, _ := newMessageSvc(repo, dedup)

	in := ports.SubmitInput{Username: "alice", Content: "hi", IdempotencyKey: "k-1"}
	first, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	again, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Nil(t, again.Message)

	assert.Len(t, repo.raw("alice").Messages, 1)
}

func TestMessageService_Submit_DedupFailureStillStores(t *testing.T) {
	repo := newStubAccountRepo()
	repo.seedVerified("alice", "a@x.com")
	dedup := newStubDedup()
	dedup.reserveErr = errors.New("redis down")
	svc, _ := newMessageSvc(repo, dedup)

	_, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: "hi", IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.Len(t, repo.raw("alice").Messages, 1)
}

func TestMessageService_Submit_ConcurrentRetriesStoreOnce(t *testing.T) {
	repo := newStubAccountRepo()
	repo.seedVerified("alice", "a@x.com")
	svc, _ := newMessageSvc(repo, newStubDedup())

	const retries = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		stored   int
		replayed int
	)
	start := make(chan struct{})
	for i := 0; i < retries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: "hi", IdempotencyKey: "k-1"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Replayed {
				replayed++
			} else {
				stored++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, stored)
	assert.Equal(t, retries-1, replayed)
	assert.Len(t, repo.raw("alice").Messages, 1)
}

type failingAppend struct {
	*stubAccountRepo
	failures int
}

func (r *failingAppend) AppendMessage(ctx context.Context, accountID string, msg domain.Message) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("write concern timeout")
	}
	return r.stubAccountRepo.AppendMessage(ctx, accountID, msg)
}

func TestMessageService_Submit_FailedAppendReleasesKey(t *testing.T) {
	repo := newStubAccountRepo()
	repo.seedVerified("alice", "a@x.com")
	dedup := newStubDedup()
	svc, _ := newMessageSvc(repo, dedup)
	svc.repo = &failingAppend{stubAccountRepo: repo, failures: 1}

	in := ports.SubmitInput{Username: "alice", Content: "hi", IdempotencyKey: "k-1"}
	_, err := svc.Submit(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, 1, dedup.released)

	res, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Len(t, repo.raw("alice").Messages, 1)
}

func TestMessageService_Delete_RemovesOnlyTarget(t *testing.T) {
	repo := newStubAccountRepo()
	id := repo.seedVerified("alice", "a@x.com")
	svc, clk := newMessageSvc(repo, nil)

	kept, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: "keep"})
	require.NoError(t, err)
	clk.Advance(time.Second)
	gone, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: "hi"})
	require.NoError(t, err)

	owner := ports.OwnerSession{AccountID: id, Username: "alice"}
	removed, err := svc.Delete(context.Background(), owner, gone.Message.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	msgs, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, kept.Message.ID, msgs[0].ID)
}

func TestMessageService_Delete_IsIdempotent(t *testing.T) {
	repo := newStubAccountRepo()
	id := repo.seedVerified("alice", "a@x.com")
	svc, _ := newMessageSvc(repo, nil)

	removed, err := svc.Delete(context.Background(), ports.OwnerSession{AccountID: id}, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMessageService_Delete_CannotTouchOtherAccounts(t *testing.T) {
	repo := newStubAccountRepo()
	repo.seedVerified("alice", "a@x.com")
	bobID := repo.seedVerified("bob", "b@x.com")
	svc, _ := newMessageSvc(repo, nil)

	res, err := svc.Submit(context.Background(), ports.SubmitInput{Username: "alice", Content: "for alice"})
	require.NoError(t, err)

	removed, err := svc.Delete(context.Background(), ports.OwnerSession{AccountID: bobID}, res.Message.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, repo.raw("alice").Messages, 1)
}

func TestMessageService_RequiresSession(t *testing.T) {
	svc, _ := newMessageSvc(newStubAccountRepo(), nil)

	_, err := svc.List(context.Background(), ports.OwnerSession{})
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, err = svc.Delete(context.Background(), ports.OwnerSession{}, "id")
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, err = svc.Delete(context.Background(), ports.OwnerSession{AccountID: "acc"}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMessageService_List_EmptyInboxIsNotNil(t *testing.T) {
	repo := newStubAccountRepo()
	id := repo.seedVerified("alice", "a@x.com")
	svc, _ := newMessageSvc(repo, nil)

	msgs, err := svc.List(context.Background(), ports.OwnerSession{AccountID: id})
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}
