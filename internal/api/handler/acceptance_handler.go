package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/truefeedback/inbox-api/internal/api/metrics"
	"github.com/truefeedback/inbox-api/internal/core/ports"
)

// AcceptanceHandler exposes the owner's accept/reject toggle.
type AcceptanceHandler struct {
	service ports.AcceptanceService
}

func NewAcceptanceHandler(service ports.AcceptanceService) *AcceptanceHandler {
	return &AcceptanceHandler{service: service}
}

// Get handles GET /accept-messages.
//
// @Summary      Read the acceptance flag
// @Tags         inbox
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  acceptanceStatusResponse
// @Failure      401  {object}  envelope
// @Failure      404  {object}  envelope
// @Router       /accept-messages [get]
func (h *AcceptanceHandler) Get(c echo.Context) error {
	owner, err := ctxOwner(c)
	if err != nil {
		return err
	}
	accepting, err := h.service.Get(c.Request().Context(), owner)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, acceptanceStatusResponse{Success: true, IsAcceptingMessages: accepting})
}

// Set handles POST /accept-messages.
//
// @Summary      Turn message acceptance on or off
// @Tags         inbox
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      acceptMessagesRequest  true  "New flag value"
// @Success      200   {object}  acceptanceUpdateResponse
// @Failure      400   {object}  envelope
// @Failure      401   {object}  envelope
// @Failure      404   {object}  envelope
// @Router       /accept-messages [post]
func (h *AcceptanceHandler) Set(c echo.Context) error {
	owner, err := ctxOwner(c)
	if err != nil {
		return err
	}
	var req acceptMessagesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	accepting, err := h.service.Set(c.Request().Context(), owner, *req.AcceptMessages)
	if err != nil {
		return httpError(err)
	}

	state := "off"
	if accepting {
		state = "on"
	}
	metrics.AcceptanceTogglesTotal.WithLabelValues(state).Inc()
	return c.JSON(http.StatusOK, acceptanceUpdateResponse{
		Success:             true,
		Message:             "Message acceptance status updated successfully",
		IsAcceptingMessages: accepting,
	})
}
