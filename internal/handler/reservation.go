package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/repository"
	"github.com/iliyamo/library-seat-reservation/internal/service"
)

// ReservationHandler exposes the reservation lifecycle to students.
type ReservationHandler struct {
	svc   *service.ReservationService
	resvs *repository.ReservationRepo
}

func NewReservationHandler(svc *service.ReservationService, resvs *repository.ReservationRepo) *ReservationHandler {
	return &ReservationHandler{svc: svc, resvs: resvs}
}

type reserveReq struct {
	SeatID uint64   `json:"seat_id" validate:"required"`
	Slots  []string `json:"slots" validate:"required,min=1,max=3,dive,oneof=morning afternoon evening"`
}

type checkInReq struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	ScanCode string   `json:"scan_code"`
}

// Create books one or more of today's slots on a seat.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	created, err := h.svc.Reserve(c.Request().Context(), userID, req.SeatID, req.Slots)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservations": created})
}

// CheckIn confirms presence at the seat within the check-in window.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req checkInReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.svc.CheckIn(c.Request().Context(), userID, id, service.Proof{
		Lat: req.Lat, Lng: req.Lng, ScanCode: req.ScanCode,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Leave records a declared temporary absence.
func (h *ReservationHandler) Leave(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.svc.Leave(c.Request().Context(), userID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Release ends or cancels the reservation.
func (h *ReservationHandler) Release(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.svc.Release(c.Request().Context(), userID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Active returns the user's current active reservation, if any.
func (h *ReservationHandler) Active(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.resvs.ActiveByUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"reservation": nil})
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

// History returns the user's past and present reservations, newest first.
func (h *ReservationHandler) History(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.resvs.HistoryByUser(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}
