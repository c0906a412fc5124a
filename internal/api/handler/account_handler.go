package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/truefeedback/inbox-api/internal/api/metrics"
	"github.com/truefeedback/inbox-api/internal/core/domain"
	"github.com/truefeedback/inbox-api/internal/core/ports"
)

// AccountHandler handles signup, verification and sign-in.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// SignUp handles POST /sign-up.
//
// @Summary      Register an account and email a verification code
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Signup form"
// @Success      201   {object}  envelope
// @Failure      400   {object}  envelope
// @Failure      500   {object}  envelope  "Account stored but the code email failed"
// @Router       /sign-up [post]
func (h *AccountHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.SignupsTotal.WithLabelValues(string(domain.KindValidation)).Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Signup(c.Request().Context(), ports.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		metrics.SignupsTotal.WithLabelValues(metrics.Outcome(err, "")).Inc()
		return httpError(err)
	}

	if !res.CodeDelivered {
		metrics.SignupsTotal.WithLabelValues(string(domain.KindDependency)).Inc()
		_, msg := Resolve(domain.ErrCodeDelivery)
		return c.JSON(http.StatusInternalServerError, envelope{Success: false, Message: msg})
	}

	outcome := "created"
	if res.Refreshed {
		outcome = "refreshed"
	}
	metrics.SignupsTotal.WithLabelValues(outcome).Inc()
	return respondOK(c, http.StatusCreated, "User registered successfully. Please verify your email")
}

// VerifyCode handles POST /verify-code.
//
// @Summary      Verify an account with its emailed code
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      verifyCodeRequest  true  "Username and code"
// @Success      200   {object}  envelope
// @Failure      400   {object}  envelope
// @Failure      404   {object}  envelope
// @Router       /verify-code [post]
func (h *AccountHandler) VerifyCode(c echo.Context) error {
	var req verifyCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.VerificationsTotal.WithLabelValues(string(domain.KindValidation)).Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err := h.service.Verify(c.Request().Context(), req.Username, req.Code)
	metrics.VerificationsTotal.WithLabelValues(metrics.Outcome(err, "verified")).Inc()
	if err != nil {
		return httpError(err)
	}
	return respondOK(c, http.StatusOK, "Account verified successfully")
}

// SignIn handles POST /sign-in and issues the owner session token.
//
// @Summary      Exchange credentials for an owner session token
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Email or username, and password"
// @Success      200   {object}  signInResponse
// @Failure      400   {object}  envelope
// @Failure      401   {object}  envelope
// @Failure      403   {object}  envelope
// @Router       /sign-in [post]
func (h *AccountHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, account, err := h.service.SignIn(c.Request().Context(), strings.TrimSpace(req.Identifier), req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, signInResponse{Success: true, Token: token, Username: account.Username})
}

// CheckUsernameUnique handles GET /check-username-unique.
//
// @Summary      Check whether a username can be claimed
// @Tags         accounts
// @Produce      json
// @Param        username  query     string  true  "Candidate username"
// @Success      200       {object}  envelope
// @Failure      400       {object}  envelope
// @Router       /check-username-unique [get]
func (h *AccountHandler) CheckUsernameUnique(c echo.Context) error {
	var q usernameQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	available, err := h.service.UsernameAvailable(c.Request().Context(), q.Username)
	if err != nil {
		return httpError(err)
	}
	if !available {
		return httpError(domain.ErrUsernameTaken)
	}
	return respondOK(c, http.StatusOK, "Username is unique")
}
