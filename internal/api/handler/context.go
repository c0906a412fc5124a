package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/truefeedback/inbox-api/internal/core/domain"
	"github.com/truefeedback/inbox-api/internal/core/ports"
)

// Context keys written by middleware.Auth.
const (
	CtxAccountID = "account_id"
	CtxUsername  = "username"
)

// ctxOwner extracts the owner session injected by the Auth middleware. A
// missing account id means the route was mounted without Auth; reject with 401.
func ctxOwner(c echo.Context) (ports.OwnerSession, error) {
	accountID, _ := c.Get(CtxAccountID).(string)
	if accountID == "" {
		return ports.OwnerSession{}, httpError(domain.ErrNoSession)
	}
	username, _ := c.Get(CtxUsername).(string)
	return ports.OwnerSession{AccountID: accountID, Username: username}, nil
}
