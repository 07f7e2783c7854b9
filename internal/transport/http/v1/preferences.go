package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/taleemedge/chatbot/internal/domain"
)

// GetPreferences returns the caller's preferences.
// GET /api/chatbot/preferences/
func (h *Handler) GetPreferences(c echo.Context) error {
	prefs, err := h.service.GetPreferences(c.Request().Context(), userID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences applies a partial preferences update.
// PUT|PATCH /api/chatbot/preferences/
func (h *Handler) UpdatePreferences(c echo.Context) error {
	var update domain.PreferencesUpdate
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	prefs, err := h.service.UpdatePreferences(c.Request().Context(), userID(c), update)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, prefs)
}
