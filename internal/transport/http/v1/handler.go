// Package v1 provides the HTTP handlers of the chat API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/taleemedge/chatbot/internal/domain"
	"github.com/taleemedge/chatbot/internal/service"
)

// BasePath prefixes every chat route.
const BasePath = "/api/chatbot"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	log     logrus.FieldLogger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, log logrus.FieldLogger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the chat routes. Every route runs behind the
// given middleware, which must establish the caller identity.
func (h *Handler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	g := e.Group(BasePath, mw...)

	// Sessions
	g.GET("/sessions/", h.ListSessions)
	g.POST("/sessions/", h.CreateSession)
	g.DELETE("/sessions/delete-all/", h.DeleteAllSessions)
	g.GET("/sessions/:id/", h.GetSession)
	g.PUT("/sessions/:id/", h.UpdateSession)
	g.PATCH("/sessions/:id/", h.UpdateSession)
	g.DELETE("/sessions/:id/", h.DeleteSession)
	g.GET("/sessions/:id/messages/", h.ListMessages)
	g.GET("/sessions/:id/summary/", h.GetSummary)

	// Messages
	g.POST("/send-message/", h.SendMessage)

	// Preferences
	g.GET("/preferences/", h.GetPreferences)
	g.PUT("/preferences/", h.UpdatePreferences)
	g.PATCH("/preferences/", h.UpdatePreferences)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps service errors onto HTTP responses. Missing and foreign
// sessions share one response.
func (h *Handler) writeError(c echo.Context, err error) error {
	switch {
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, errorBody("session not found"))
	case errors.Is(err, domain.ErrProcessingFailed):
		return c.JSON(http.StatusInternalServerError, errorBody("Failed to process message"))
	}

	h.log.WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).WithError(err).Error("request failed")
	return c.JSON(http.StatusInternalServerError, errorBody("internal server error"))
}
