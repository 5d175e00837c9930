package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/presence"
)

// PresenceHandler receives periodic client heartbeats.  The occupancy
// sweep treats a recent heartbeat as presence at the seat.
type PresenceHandler struct {
	tracker *presence.Tracker
}

func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// Heartbeat refreshes the caller's online marker.
func (h *PresenceHandler) Heartbeat(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.tracker.Heartbeat(c.Request().Context(), userID); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
