package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/taleemedge/chatbot/internal/domain"
)

// ListSessions lists the caller's active sessions.
// GET /api/chatbot/sessions/
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context(), userID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// createSessionResponse adds the enrichment warning to the session detail.
type createSessionResponse struct {
	*domain.SessionDetail
	Warning string `json:"warning,omitempty"`
}

// CreateSession creates a session, optionally running a first turn.
// POST /api/chatbot/sessions/
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	result, err := h.service.CreateSession(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.writeError(c, err)
	}

	resp := createSessionResponse{SessionDetail: result.Session}
	if result.EnrichmentErr != nil {
		resp.Warning = "Session created, but the first message could not be processed"
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetSession returns a session with its messages.
// GET /api/chatbot/sessions/:id/
func (h *Handler) GetSession(c echo.Context) error {
	detail, err := h.service.GetSession(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateSession renames a session.
// PUT|PATCH /api/chatbot/sessions/:id/
func (h *Handler) UpdateSession(c echo.Context) error {
	var req domain.UpdateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	detail, err := h.service.UpdateSession(c.Request().Context(), userID(c), c.Param("id"), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// DeleteSession soft-deletes a session.
// DELETE /api/chatbot/sessions/:id/
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.service.DeleteSession(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Chat session deleted successfully"})
}

// DeleteAllSessions soft-deletes every session of the caller.
// DELETE /api/chatbot/sessions/delete-all/
func (h *Handler) DeleteAllSessions(c echo.Context) error {
	count, err := h.service.DeleteAllSessions(c.Request().Context(), userID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.DeleteAllResponse{
		Message:      "All chat sessions deleted successfully",
		DeletedCount: count,
	})
}

// ListMessages returns a page of a session's messages.
// GET /api/chatbot/sessions/:id/messages/?page=&per_page=
func (h *Handler) ListMessages(c echo.Context) error {
	page := 1
	if p := c.QueryParam("page"); p != "" {
		if val, err := strconv.Atoi(p); err == nil {
			page = val
		}
	}
	perPage := domain.DefaultPageSize
	if pp := c.QueryParam("per_page"); pp != "" {
		if val, err := strconv.Atoi(pp); err == nil && val > 0 {
			perPage = val
		}
	}

	result, err := h.service.ListMessages(c.Request().Context(), userID(c), c.Param("id"), page, perPage)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetSummary returns a generated summary of a session.
// GET /api/chatbot/sessions/:id/summary/
func (h *Handler) GetSummary(c echo.Context) error {
	summary, err := h.service.SummarizeSession(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.SummaryResponse{Summary: summary})
}
