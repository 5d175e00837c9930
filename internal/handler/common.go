// Package handler defines the HTTP handlers.  Handlers bind and validate
// request bodies, call the service layer and translate typed rejections
// into HTTP statuses; they hold no business rules of their own.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/service"
)

var validate = validator.New()

// bindAndValidate decodes the JSON body into v and runs struct validation.
func bindAndValidate(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := validate.Struct(v); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return nil
}

// getUserID reads the authenticated user id stored by the JWT middleware.
// JWT claims decode numbers as float64; older tokens may carry strings.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), nil
	case int64:
		return uint64(v), nil
	case uint64:
		return v, nil
	case string:
		id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, errors.New("invalid user id claim")
		}
		return id, nil
	default:
		return 0, errors.New("missing user id claim")
	}
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// rejectStatus maps a rejection code to its HTTP status.
func rejectStatus(code string) int {
	switch code {
	case service.CodeContention:
		return http.StatusConflict
	case service.CodePreconditionFailed:
		return http.StatusUnprocessableEntity
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeInvariant:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail renders a service error: typed rejections keep their code and reason,
// anything else is logged and becomes an opaque 500.
func fail(c echo.Context, err error) error {
	var rej *service.Rejection
	if errors.As(err, &rej) {
		return c.JSON(rejectStatus(rej.Code), echo.Map{
			"error":  rej.Message,
			"code":   rej.Code,
			"reason": rej.Reason,
		})
	}
	logger.Get().Error("request failed",
		"method", c.Request().Method, "path", c.Path(), "err", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
