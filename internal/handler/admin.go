package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/repository"
	"github.com/iliyamo/library-seat-reservation/internal/service"
)

// AdminHandler groups the administrative overrides: forced releases,
// occupancy inspection, appeal review and the closing checkout.
type AdminHandler struct {
	resvSvc   *service.ReservationService
	appealSvc *service.AppealService
	sweeper   *service.Sweeper
	occ       *repository.OccupancyRepo
}

func NewAdminHandler(resvSvc *service.ReservationService, appealSvc *service.AppealService, sweeper *service.Sweeper, occ *repository.OccupancyRepo) *AdminHandler {
	return &AdminHandler{resvSvc: resvSvc, appealSvc: appealSvc, sweeper: sweeper, occ: occ}
}

type reviewReq struct {
	Approve bool   `json:"approve"`
	Reply   string `json:"reply" validate:"required,max=500"`
}

// ForceRelease ends any active reservation immediately.
func (h *AdminHandler) ForceRelease(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.resvSvc.ForceRelease(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Occupancy lists the snapshots currently being monitored.
func (h *AdminHandler) Occupancy(c echo.Context) error {
	snaps, err := h.occ.ListMonitored(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"snapshots": snaps})
}

// OccupancyCheckout manually checks out a monitored reservation, bypassing
// the escalation thresholds.
func (h *AdminHandler) OccupancyCheckout(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.resvSvc.ForceRelease(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Appeals lists appeals, optionally filtered with ?status=pending.
func (h *AdminHandler) Appeals(c echo.Context) error {
	list, err := h.appealSvc.List(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"appeals": list})
}

// ReviewAppeal records a verdict on a pending appeal.
func (h *AdminHandler) ReviewAppeal(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appeal id"})
	}
	var req reviewReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	appeal, err := h.appealSvc.Review(c.Request().Context(), id, req.Approve, req.Reply)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, appeal)
}

// CheckoutAll force-ends every active reservation, as at closing time.
func (h *AdminHandler) CheckoutAll(c echo.Context) error {
	n, err := h.sweeper.CheckoutAll(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"checked_out": n})
}
