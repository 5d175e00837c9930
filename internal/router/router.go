// Package router wires handlers to routes and applies the auth layers.
package router

import (
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/handler"
	"github.com/iliyamo/library-seat-reservation/internal/middleware"
	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health        *handler.HealthHandler
	Auth          *handler.AuthHandler
	Seats         *handler.SeatHandler
	Reservations  *handler.ReservationHandler
	Appeals       *handler.AppealHandler
	Presence      *handler.PresenceHandler
	Notifications *handler.NotificationHandler
	Admin         *handler.AdminHandler
}

// New builds the Echo instance with all routes registered.
func New(jwtSecret string, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	e.GET("/healthz", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Authenticated surface, students and admins alike.
	user := v1.Group("", middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent, model.RoleAdmin))
	user.GET("/me", h.Auth.Me)
	user.GET("/seats", h.Seats.List)
	user.POST("/reservations", h.Reservations.Create)
	user.GET("/reservations/active", h.Reservations.Active)
	user.GET("/reservations/my-history", h.Reservations.History)
	user.POST("/reservations/:id/check-in", h.Reservations.CheckIn)
	user.POST("/reservations/:id/leave", h.Reservations.Leave)
	user.POST("/reservations/:id/release", h.Reservations.Release)
	user.POST("/reservations/:id/appeal", h.Appeals.Create)
	user.POST("/presence/heartbeat", h.Presence.Heartbeat)
	user.GET("/notifications", h.Notifications.List)
	user.POST("/notifications/:id/read", h.Notifications.MarkRead)

	admin := v1.Group("/admin", middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin))
	admin.POST("/seats", h.Seats.Create)
	admin.POST("/seats/batch", h.Seats.BatchImport)
	admin.PUT("/seats/:id", h.Seats.Update)
	admin.DELETE("/seats/:id", h.Seats.Delete)
	admin.POST("/seats/:id/status", h.Seats.SetStatus)
	admin.GET("/seats/:id/scan-code", h.Seats.ScanCode)
	admin.POST("/reservations/:id/force-release", h.Admin.ForceRelease)
	admin.GET("/occupancy", h.Admin.Occupancy)
	admin.POST("/occupancy/:id/checkout", h.Admin.OccupancyCheckout)
	admin.GET("/appeals", h.Admin.Appeals)
	admin.POST("/appeals/:id/review", h.Admin.ReviewAppeal)
	admin.POST("/checkout-all", h.Admin.CheckoutAll)

	return e
}
