package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewEcho builds the echo instance with middleware, the error handler and all
// routes registered.
func NewEcho(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	RegisterRoutes(e, h)
	return e
}

// RegisterRoutes attaches the API endpoints to an echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.HandleHealth)
	e.GET("/stats", h.HandleStats)

	jiraGroup := e.Group("/jira")
	jiraGroup.POST("/jql", h.HandleJQLSearch)
	jiraGroup.POST("/markdown", h.HandleMarkdown)
}
