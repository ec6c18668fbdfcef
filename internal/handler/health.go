package handler // declare the package name; contains HTTP handlers

import (
    "net/http" // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is the liveness endpoint probed by load balancers and
// monitoring.  It answers plain "ok" with a 200.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
