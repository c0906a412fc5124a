package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/truefeedback/inbox-api/internal/core/domain"
	"github.com/truefeedback/inbox-api/internal/core/ports"
)

type stubAccountService struct {
	signupRes  *ports.SignupResult
	signupErr  error
	signupIn   ports.SignupInput
	verifyErr  error
	verified   [2]string
	available  bool
	availErr   error
	token      string
	account    *domain.Account
	signInErr  error
	calledWith string
}

func (s *stubAccountService) Signup(_ context.Context, in ports.SignupInput) (*ports.SignupResult, error) {
	s.signupIn = in
	return s.signupRes, s.signupErr
}

func (s *stubAccountService) Verify(_ context.Context, username, code string) error {
	s.verified = [2]string{username, code}
	return s.verifyErr
}

func (s *stubAccountService) UsernameAvailable(_ context.Context, username string) (bool, error) {
	s.calledWith = username
	return s.available, s.availErr
}

func (s *stubAccountService) SignIn(_ context.Context, identifier, _ string) (string, *domain.Account, error) {
	s.calledWith = identifier
	return s.token, s.account, s.signInErr
}

type stubAcceptanceService struct {
	accepting bool
	err       error
	owner     ports.OwnerSession
	setTo     *bool
}

func (s *stubAcceptanceService) Get(_ context.Context, owner ports.OwnerSession) (bool, error) {
	s.owner = owner
	return s.accepting, s.err
}

func (s *stubAcceptanceService) Set(_ context.Context, owner ports.OwnerSession, accept bool) (bool, error) {
	s.owner = owner
	s.setTo = &accept
	if s.err != nil {
		return false, s.err
	}
	return accept, nil
}

type stubMessageService struct {
	submitIn  ports.SubmitInput
	submitRes *ports.SubmitResult
	submitErr error
	listed    []domain.Message
	listErr   error
	removed   bool
	deleteErr error
	deletedID string
	owner     ports.OwnerSession
}

func (s *stubMessageService) Submit(_ context.Context, in ports.SubmitInput) (*ports.SubmitResult, error) {
	s.submitIn = in
	return s.submitRes, s.submitErr
}

func (s *stubMessageService) List(_ context.Context, owner ports.OwnerSession) ([]domain.Message, error) {
	s.owner = owner
	return s.listed, s.listErr
}

func (s *stubMessageService) Delete(_ context.Context, owner ports.OwnerSession, id string) (bool, error) {
	s.owner = owner
	s.deletedID = id
	return s.removed, s.deleteErr
}

type stubSuggestionService struct {
	topic string
	out   []string
}

func (s *stubSuggestionService) Suggest(_ context.Context, topic string) ([]string, error) {
	s.topic = topic
	return s.out, nil
}

// newContext builds an echo context with the real validator. A non-empty
// owner simulates a request that passed the Auth middleware.
func newContext(method, target, body, owner string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if owner != "" {
		c.Set(CtxAccountID, owner)
		c.Set(CtxUsername, "alice")
	}
	return c, rec
}

// expectHTTPError asserts err is an *echo.HTTPError with the given code.
func expectHTTPError(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Fatalf("expected status %d, got %d (%v)", code, he.Code, he.Message)
	}
	return he
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func expectEnvelope(t *testing.T, rec *httptest.ResponseRecorder, code int, success bool, message string) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("expected status %d, got %d: %s", code, rec.Code, rec.Body.String())
	}
	var env envelope
	decode(t, rec, &env)
	if env.Success != success || env.Message != message {
		t.Fatalf("expected {%v %q}, got {%v %q}", success, message, env.Success, env.Message)
	}
}
