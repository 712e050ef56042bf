package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"execteam/internal/coreerr"
)

// mapError maps a core error's Kind to an HTTP status, per spec.md §7's
// tagged error categories.
func mapError(err error) error {
	switch coreerr.KindOf(err) {
	case coreerr.KindValidation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case coreerr.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case coreerr.KindConflict:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case coreerr.KindTransient:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
