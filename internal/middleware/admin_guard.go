package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminGuard gates the operator surface. It assumes JWTMiddleware already ran
// and stashed the caller's role on the context.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get("role").(string)
		if !ok || role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{
				"success": false,
				"error":   "admin access only",
			})
		}
		return next(c)
	}
}
