package http

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	middleware "comply-scheduler.com/comply-scheduler/internal/http/middlewares"
	"comply-scheduler.com/comply-scheduler/internal/http/validators"
)

func NewServer(h *Handler, rateLimitPerMinute int, log *logrus.Entry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.New()

	Register(e, h, rateLimitPerMinute, log)
	return e
}

func Register(e *echo.Echo, h *Handler, rateLimitPerMinute int, log *logrus.Entry) {
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log.WithField("component", "http")))

	e.GET("/health", h.Health)

	api := e.Group("", middleware.RateLimiter(rateLimitPerMinute, time.Minute))

	api.POST("/tasks", h.CreateTask)
	api.GET("/tasks", h.ListTasks)
	api.GET("/tasks/:id", h.GetTask)
	api.PUT("/tasks/:id", h.UpdateTask)
	api.DELETE("/tasks/:id", h.DeleteTask)
	api.GET("/tasks/:id/notifications", h.NotificationHistory)

	api.GET("/stats", h.Stats)
	api.GET("/calendar", h.Calendar)
	api.GET("/reports/summary", h.Report)

	api.POST("/sweep", h.TriggerSweep)
}
