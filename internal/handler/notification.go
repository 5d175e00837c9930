package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/repository"
)

// NotificationHandler serves the in-app notification feed.
type NotificationHandler struct {
	repo *repository.NotificationRepo
}

func NewNotificationHandler(repo *repository.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// List returns the caller's newest notifications (?limit=N, default 50).
func (h *NotificationHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, err := h.repo.ListByUser(c.Request().Context(), userID, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": list})
}

// MarkRead acknowledges one of the caller's notifications.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	if err := h.repo.MarkRead(c.Request().Context(), userID, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
