package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/truefeedback/inbox-api/internal/core/domain"
)

// envelope is the uniform body of every response that is not a data listing.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// publicErrors maps domain sentinels to their status code and the message the
// caller is shown.
var publicErrors = []struct {
	err     error
	status  int
	message string
}{
	{domain.ErrInvalidInput, http.StatusBadRequest, "Missing or invalid fields"},
	{domain.ErrInvalidUsername, http.StatusBadRequest, "Invalid username format"},
	{domain.ErrInvalidContent, http.StatusBadRequest, "Message must be between 1 and 300 characters"},
	{domain.ErrUsernameTaken, http.StatusBadRequest, "Username is already taken"},
	{domain.ErrEmailInUse, http.StatusBadRequest, "User already exists with this email"},
	{domain.ErrAccountNotFound, http.StatusNotFound, "User not found"},
	{domain.ErrRecipientNotFound, http.StatusNotFound, "User not found"},
	{domain.ErrCodeExpired, http.StatusBadRequest, "Verification code expired. Please sign up again."},
	{domain.ErrIncorrectCode, http.StatusBadRequest, "Incorrect verification code"},
	{domain.ErrNotAccepting, http.StatusForbidden, "User is not accepting messages"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Incorrect username or password"},
	{domain.ErrAccountNotVerified, http.StatusForbidden, "Please verify your account before signing in"},
	{domain.ErrNoSession, http.StatusUnauthorized, "Not authenticated"},
	{domain.ErrCodeDelivery, http.StatusInternalServerError, "User registered, but failed to send verification email"},
}

// Resolve returns the status code and public message for err. Errors that
// are not part of the domain taxonomy resolve to a generic 500.
func Resolve(err error) (int, string) {
	for _, pe := range publicErrors {
		if errors.Is(err, pe.err) {
			return pe.status, pe.message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// httpError converts err into an echo.HTTPError carrying the public message
// and keeping err as the internal cause for logging.
func httpError(err error) error {
	code, msg := Resolve(err)
	return echo.NewHTTPError(code, msg).SetInternal(err)
}

func respondOK(c echo.Context, code int, message string) error {
	return c.JSON(code, envelope{Success: true, Message: message})
}
