package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass the session check: infrastructure endpoints and the
// login form itself.
var publicPaths = map[string]bool{
	"/health":            true,
	"/health/storage":    true,
	"/metrics":           true,
	"/api/v1/auth/login": true,
}

// AuthSkipper matches on the route template.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
