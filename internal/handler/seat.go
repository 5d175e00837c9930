package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/service"
)

// SeatHandler exposes the seat directory: the seat map for students and
// CRUD plus status override for administrators.
type SeatHandler struct {
	svc *service.SeatService
}

func NewSeatHandler(svc *service.SeatService) *SeatHandler { return &SeatHandler{svc: svc} }

type seatReq struct {
	SeatNo string `json:"seat_no" validate:"required,max=16"`
	Area   string `json:"area" validate:"required,max=16"`
	Type   string `json:"type" validate:"omitempty,max=32"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type seatBatchReq struct {
	Seats []seatReq `json:"seats" validate:"required,min=1,max=500,dive"`
}

type seatStatusReq struct {
	Status string `json:"status" validate:"required,oneof=available maintenance"`
}

func (r seatReq) toModel() model.Seat {
	return model.Seat{SeatNo: r.SeatNo, Area: r.Area, Type: r.Type, X: r.X, Y: r.Y}
}

// List returns all seats with today's per-slot availability.
func (h *SeatHandler) List(c echo.Context) error {
	seats, err := h.svc.List(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}

// Create adds one seat.
func (h *SeatHandler) Create(c echo.Context) error {
	var req seatReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	seat := req.toModel()
	if err := h.svc.Create(c.Request().Context(), &seat); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, seat)
}

// BatchImport creates many seats at once, skipping duplicate seat numbers.
func (h *SeatHandler) BatchImport(c echo.Context) error {
	var req seatBatchReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	seats := make([]model.Seat, len(req.Seats))
	for i, s := range req.Seats {
		seats[i] = s.toModel()
	}
	created, skipped, err := h.svc.BatchImport(c.Request().Context(), seats)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"created": created, "skipped": skipped})
}

// Update edits a seat's metadata.
func (h *SeatHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var req seatReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	seat := req.toModel()
	seat.ID = id
	if err := h.svc.Update(c.Request().Context(), &seat); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, seat)
}

// Delete tombstones a seat.
func (h *SeatHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "seat deleted"})
}

// SetStatus applies the administrative status override.
func (h *SeatHandler) SetStatus(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var req seatStatusReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.svc.SetStatus(c.Request().Context(), id, req.Status); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "status updated"})
}

// ScanCode returns the code behind a seat's QR sticker, for printing.
func (h *SeatHandler) ScanCode(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	code, err := h.svc.ScanCode(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"scan_code": code})
}
