package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/buskabout/buskabout/internal/repository"
)

// RequireBusker returns a middleware that enforces that the authenticated
// user owns a busker profile.  Only registered buskers may announce or
// change schedules; everyone else gets a 403 pointing them at profile
// creation.  It assumes JWTAuth has already placed "user_id" in the
// context, and it queries the store fresh on every request rather than
// trusting anything the client cached.
func RequireBusker(buskers *repository.BuskerRepo) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            uid, err := contextUserID(c)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
            defer cancel()
            if _, err := buskers.GetByUserID(ctx, uid); err != nil {
                if errors.Is(err, repository.ErrBuskerNotFound) {
                    return c.JSON(http.StatusForbidden, echo.Map{"error": "only registered buskers can add schedules"})
                }
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
            }
            return next(c)
        }
    }
}

// contextUserID converts the raw "user_id" context value to uint64.  JWT
// numeric claims decode as float64; other shapes are tolerated for safety.
func contextUserID(c echo.Context) (uint64, error) {
    switch t := c.Get("user_id").(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}
