package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/truefeedback/inbox-api/internal/api/metrics"
	"github.com/truefeedback/inbox-api/internal/core/ports"
)

const (
	// IdempotencyHeader lets a visitor retry a submission without duplicating it.
	IdempotencyHeader = "Idempotency-Key"

	maxIdempotencyKeyLen = 128
)

// MessageHandler handles anonymous intake and owner custody of messages.
type MessageHandler struct {
	service ports.MessageService
}

func NewMessageHandler(service ports.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// Send handles POST /send-message. No session is required.
//
// @Summary      Send an anonymous message to a user
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string              false  "Client retry key"
// @Param        body             body      sendMessageRequest  true   "Recipient and content"
// @Success      200              {object}  envelope
// @Failure      400              {object}  envelope
// @Failure      403              {object}  envelope
// @Failure      404              {object}  envelope
// @Router       /send-message [post]
func (h *MessageHandler) Send(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.MessagesSubmittedTotal.WithLabelValues("validation").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	key := c.Request().Header.Get(IdempotencyHeader)
	if len(key) > maxIdempotencyKeyLen {
		return echo.NewHTTPError(http.StatusBadRequest, "idempotency key is too long")
	}

	res, err := h.service.Submit(c.Request().Context(), ports.SubmitInput{
		Username:       req.Username,
		Content:        req.Content,
		IdempotencyKey: key,
	})
	if err != nil {
		metrics.MessagesSubmittedTotal.WithLabelValues(metrics.Outcome(err, "")).Inc()
		return httpError(err)
	}

	outcome := "stored"
	if res.Replayed {
		outcome = "replayed"
	}
	metrics.MessagesSubmittedTotal.WithLabelValues(outcome).Inc()
	return respondOK(c, http.StatusOK, "Message sent successfully")
}

// List handles GET /messages.
//
// @Summary      List the owner's messages, newest first
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messagesResponse
// @Failure      401  {object}  envelope
// @Failure      404  {object}  envelope
// @Router       /messages [get]
func (h *MessageHandler) List(c echo.Context) error {
	owner, err := ctxOwner(c)
	if err != nil {
		return err
	}
	msgs, err := h.service.List(c.Request().Context(), owner)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, messagesResponse{Success: true, Messages: toMessageResponses(msgs)})
}

// Delete handles DELETE /messages/:id. Unknown ids succeed.
//
// @Summary      Delete one of the owner's messages
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Message ID"
// @Success      200  {object}  envelope
// @Failure      401  {object}  envelope
// @Failure      404  {object}  envelope
// @Router       /messages/{id} [delete]
func (h *MessageHandler) Delete(c echo.Context) error {
	owner, err := ctxOwner(c)
	if err != nil {
		return err
	}
	removed, err := h.service.Delete(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	if !removed {
		metrics.MessagesDeletedTotal.WithLabelValues("absent").Inc()
		return respondOK(c, http.StatusOK, "Message already deleted")
	}
	metrics.MessagesDeletedTotal.WithLabelValues("removed").Inc()
	return respondOK(c, http.StatusOK, "Message deleted")
}
