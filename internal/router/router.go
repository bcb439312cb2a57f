package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/buskabout/buskabout/internal/handler"
    "github.com/buskabout/buskabout/internal/middleware"
    "github.com/buskabout/buskabout/internal/repository"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the health check and the static object-store
// root.  Serving storageRoot under /storage is what makes uploaded media
// URLs publicly reachable.
func RegisterRoutes(e *echo.Echo, storageRoot string) {
    e.GET("/healthz", handler.Health)
    e.Static("/storage", storageRoot)
}

// RegisterAuth registers all authentication-related routes.  Operations
// that do not require an existing session live under /v1/auth, while
// protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // OAuth providers land here after verifying the user's email.
    g.POST("/oauth/callback", a.OAuthCallback)
    // /refresh rotates the refresh token; /refresh-access only re-issues
    // the short-lived access token.
    g.POST("/refresh", a.Refresh)
    g.POST("/refresh-access", a.RefreshAccess)
    // Logout accepts either a bearer (sign out everywhere) or a
    // refresh_token body (end one session), so it stays outside the JWT
    // middleware.
    g.POST("/logout", a.Logout)
    e.POST("/v1/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
}

// RegisterBuskers registers the public performer directory and the
// caller-scoped profile/gallery routes.  Public reads sit behind the rate
// limiter; the directory list personalizes its ordering per caller so only
// the profile detail page is response-cached.
func RegisterBuskers(e *echo.Echo, b *handler.BuskerHandler, g *handler.GalleryHandler, jwtSecret string, cache, limit echo.MiddlewareFunc) {
    e.GET("/v1/buskers", b.List, limit)
    e.GET("/v1/buskers/:username", b.GetByUsername, cache, limit)

    p := e.Group("/v1/profile")
    p.Use(middleware.JWTAuth(jwtSecret))
    p.GET("", b.Me)
    p.POST("", b.Create)
    p.PUT("", b.Update)
    p.DELETE("", b.Delete)
    p.POST("/gallery", g.AddItem)
    p.DELETE("/gallery/:index", g.RemoveItem)
    p.POST("/media", g.Upload)
}

// RegisterSchedules registers the live map feed and the owner-side schedule
// operations.  Creating a schedule additionally requires a busker profile;
// edits and deletes re-check ownership inside the engine so the middleware
// layer only has to establish identity.
func RegisterSchedules(e *echo.Echo, s *handler.ScheduleHandler, buskers *repository.BuskerRepo, jwtSecret string, cache, limit echo.MiddlewareFunc) {
    e.GET("/v1/schedules", s.List, cache, limit)
    // Public on purpose: anonymous callers read {"owner": false}.
    e.GET("/v1/schedules/:id/ownership", s.Ownership, limit)

    auth := e.Group("/v1/schedules")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.POST("", s.Create, middleware.RequireBusker(buskers))
    auth.PATCH("/:id", s.EditTimes)
    auth.DELETE("/:id", s.Delete)
}
