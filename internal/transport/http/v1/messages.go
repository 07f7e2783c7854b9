package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/taleemedge/chatbot/internal/domain"
)

// SendMessage runs one conversational turn.
// POST /api/chatbot/send-message/
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	resp, err := h.service.SendMessage(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
