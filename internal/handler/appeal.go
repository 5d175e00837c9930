package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/service"
)

// AppealHandler lets students contest violation verdicts.
type AppealHandler struct {
	svc *service.AppealService
}

func NewAppealHandler(svc *service.AppealService) *AppealHandler { return &AppealHandler{svc: svc} }

type appealReq struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

// Create files an appeal against a violation on the user's reservation.
func (h *AppealHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req appealReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	appeal, err := h.svc.Create(c.Request().Context(), userID, id, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, appeal)
}
