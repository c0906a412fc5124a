package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/truefeedback/inbox-api/internal/core/ports"
)

// SuggestionHandler serves conversation starters for visitors.
type SuggestionHandler struct {
	service ports.SuggestionService
}

func NewSuggestionHandler(service ports.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{service: service}
}

// Suggest handles POST /suggest-messages. An empty body is accepted.
//
// @Summary      Suggest questions a visitor could send
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        body  body      suggestRequest  false  "Optional topic"
// @Success      200   {object}  suggestionsResponse
// @Failure      400   {object}  envelope
// @Router       /suggest-messages [post]
func (h *SuggestionHandler) Suggest(c echo.Context) error {
	var req suggestRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	suggestions, err := h.service.Suggest(c.Request().Context(), req.Topic)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, suggestionsResponse{Success: true, Suggestions: suggestions})
}
