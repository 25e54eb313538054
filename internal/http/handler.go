package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	dto "comply-scheduler.com/comply-scheduler/internal/data_models"
	apperrors "comply-scheduler.com/comply-scheduler/internal/errors"
	"comply-scheduler.com/comply-scheduler/internal/services"
)

// Sweeper triggers one sweep on demand.
type Sweeper interface {
	Run(ctx context.Context) (services.Summary, error)
}

type Handler struct {
	taskService *services.TaskService
	sweeper     Sweeper
	log         *logrus.Entry
}

func NewHandler(taskService *services.TaskService, sweeper Sweeper, log *logrus.Entry) *Handler {
	return &Handler{
		taskService: taskService,
		sweeper:     sweeper,
		log:         log.WithField("component", "http"),
	}
}

// fail converts a service error into an HTTP error. Internal errors are
// logged here and reported without detail.
func (h *Handler) fail(c echo.Context, op string, err error) error {
	code := apperrors.StatusCode(err)
	if code >= http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"operation": op,
			"path":      c.Path(),
		}).Error("request failed")
	}
	return echo.NewHTTPError(code, apperrors.Message(err))
}

func (h *Handler) bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(apperrors.ErrInvalidJSON.StatusCode, apperrors.ErrInvalidJSON.Message)
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(apperrors.StatusCode(err), err.Error())
	}
	return nil
}

func (h *Handler) CreateTask(c echo.Context) error {
	const op = "http.Handler.CreateTask"

	var req dto.CreateTaskRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), req.ToInput())
	if err != nil {
		return h.fail(c, op, err)
	}

	return c.JSON(http.StatusCreated, task)
}

func (h *Handler) GetTask(c echo.Context) error {
	const op = "http.Handler.GetTask"

	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrTaskIDRequired.Message)
	}

	task, err := h.taskService.GetTask(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) ListTasks(c echo.Context) error {
	const op = "http.Handler.ListTasks"

	q, err := services.ParseListQuery(c.QueryParam("filter"), c.QueryParam("q"), c.QueryParam("sort"))
	if err != nil {
		return h.fail(c, op, err)
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), q)
	if err != nil {
		return h.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count": len(tasks),
		"tasks": tasks,
	})
}

func (h *Handler) UpdateTask(c echo.Context) error {
	const op = "http.Handler.UpdateTask"

	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrTaskIDRequired.Message)
	}

	var req dto.UpdateTaskRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), id, req.ToPatch())
	if err != nil {
		return h.fail(c, op, err)
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) DeleteTask(c echo.Context) error {
	const op = "http.Handler.DeleteTask"

	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrTaskIDRequired.Message)
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), id); err != nil {
		return h.fail(c, op, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) NotificationHistory(c echo.Context) error {
	events, err := h.taskService.NotificationHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "http.Handler.NotificationHistory", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":  len(events),
		"events": events,
	})
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.taskService.Stats(c.Request().Context())
	if err != nil {
		return h.fail(c, "http.Handler.Stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) Calendar(c echo.Context) error {
	days, err := h.taskService.Calendar(c.Request().Context(), c.QueryParam("month"))
	if err != nil {
		return h.fail(c, "http.Handler.Calendar", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"month": c.QueryParam("month"),
		"days":  days,
	})
}

func (h *Handler) Report(c echo.Context) error {
	report, err := h.taskService.Report(c.Request().Context())
	if err != nil {
		return h.fail(c, "http.Handler.Report", err)
	}
	return c.JSON(http.StatusOK, report)
}

// TriggerSweep runs a sweep outside the daily schedule. The sweep is not
// tied to the request, so a client hanging up does not cut it short.
func (h *Handler) TriggerSweep(c echo.Context) error {
	summary, err := h.sweeper.Run(context.WithoutCancel(c.Request().Context()))
	if err != nil {
		return h.fail(c, "http.Handler.TriggerSweep", err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
