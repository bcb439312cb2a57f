package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health responds with a simple status message so load balancers and
// uptime checks can verify the service is alive.
func Health(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
