package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/haltia/matrix-ci/internal/workflow"
	"github.com/labstack/echo/v4"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrorHandler writes every error as a JSON body with at least a
// "message" field.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	switch e := err.(type) {
	case *echo.HTTPError:
		c.Logger().Errorf(
			"handler internal error %s [%d]: %+v\n",
			c.Request().URL.Path, e.Code, e.Internal,
		)
		var body any
		if m, ok := e.Message.(string); ok {
			body = echo.Map{"message": m}
		} else {
			body = e.Message
		}
		if err := c.JSON(e.Code, body); err != nil {
			log.Printf("err returning json: %+v\n", err)
		}
	default:
		c.Logger().Errorf("handler error: %+v\n", e)
		if err := c.JSON(
			http.StatusInternalServerError,
			echo.Map{"message": "something went terribly wrong"},
		); err != nil {
			log.Printf("err returning json: %+v\n", err)
		}
	}
}

func newError(err error, status int, message string) error {
	e := echo.NewHTTPError(status, message)
	if err != nil {
		e = e.WithInternal(err)
	}
	return e
}

// manifestError maps a rejected manifest to a response listing the
// validation issues. It returns nil for unrelated errors so callers
// can fall through to their own mapping.
func manifestError(err error) error {
	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(
			http.StatusUnprocessableEntity,
			echo.Map{"message": "invalid manifest", "issues": verr.Issues},
		).WithInternal(err)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func isForeignKeyConstraintError(err error) bool {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_TRIGGER ||
			sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}
