package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/buskabout/buskabout/internal/config"
    "github.com/buskabout/buskabout/internal/model"
    "github.com/buskabout/buskabout/internal/repository"
    "github.com/buskabout/buskabout/internal/schedule"
)

// ScheduleHandler exposes the live-schedule engine over HTTP: the public
// map feed, and the create/edit/delete operations for busker owners.
type ScheduleHandler struct {
    Cfg    config.Config
    Engine *schedule.Engine
}

func NewScheduleHandler(cfg config.Config, e *schedule.Engine) *ScheduleHandler {
    return &ScheduleHandler{Cfg: cfg, Engine: e}
}

// ----- DTOs -----

type createScheduleReq struct {
    Lat       float64 `json:"lat"`
    Lng       float64 `json:"lng"`
    StartTime string  `json:"start_time"`
    EndTime   string  `json:"end_time"`
}

type editScheduleReq struct {
    StartTime string `json:"start_time"`
    EndTime   string `json:"end_time"`
}

type scheduleResp struct {
    ID          uint64  `json:"id"`
    Lat         float64 `json:"lat"`
    Lng         float64 `json:"lng"`
    StartTime   string  `json:"start_time"`
    EndTime     string  `json:"end_time"`
    Date        string  `json:"date"`
    BuskerID    uint64  `json:"busker_id"`
    Username    string  `json:"username"`
    MainPhoto   string  `json:"main_photo"`
    Genre       string  `json:"genre"`
    Description string  `json:"description"`
}

func toScheduleResp(s *model.Schedule) scheduleResp {
    return scheduleResp{
        ID:          s.ID,
        Lat:         s.Lat,
        Lng:         s.Lng,
        StartTime:   s.StartTime,
        EndTime:     s.EndTime,
        Date:        s.Date,
        BuskerID:    s.BuskerID,
        Username:    s.Username,
        MainPhoto:   s.MainPhoto,
        Genre:       s.Genre,
        Description: s.Description,
    }
}

// List returns every currently live schedule for the map, ordered by date
// and start time.  Expired rows are filtered (and cleaned up) on the way.
func (h *ScheduleHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rows, err := h.Engine.Active(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    out := make([]scheduleResp, len(rows))
    for i := range rows {
        out[i] = toScheduleResp(&rows[i])
    }
    return c.JSON(http.StatusOK, echo.Map{"schedules": out})
}

// Create announces a new performance at the clicked map location
// (protected, busker-only).  The window rules are enforced by the engine
// against the Melbourne clock.
func (h *ScheduleHandler) Create(c echo.Context) error {
    uid, ok := userIDFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createScheduleReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    s, err := h.Engine.Create(ctx, uid, schedule.CreateInput{
        Lat:       req.Lat,
        Lng:       req.Lng,
        StartTime: req.StartTime,
        EndTime:   req.EndTime,
    })
    if err != nil {
        return h.scheduleError(c, err, "create schedule failed")
    }
    return c.JSON(http.StatusCreated, toScheduleResp(s))
}

// EditTimes rewrites a schedule's start/end times (protected, owner-only).
func (h *ScheduleHandler) EditTimes(c echo.Context) error {
    uid, ok := userIDFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
    }
    var req editScheduleReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    s, err := h.Engine.EditTimes(ctx, uid, id, req.StartTime, req.EndTime)
    if err != nil {
        return h.scheduleError(c, err, "update schedule failed")
    }
    return c.JSON(http.StatusOK, toScheduleResp(s))
}

// Delete takes a schedule off the map (protected, owner-only).
func (h *ScheduleHandler) Delete(c echo.Context) error {
    uid, ok := userIDFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Engine.Delete(ctx, uid, id); err != nil {
        return h.scheduleError(c, err, "delete schedule failed")
    }
    return c.NoContent(http.StatusNoContent)
}

// Ownership reports whether the caller owns a schedule.  The route is
// public; anonymous callers, callers without a profile and non-owners all
// read {"owner": false}, so the map can decide which marker actions to
// show without a second round trip.
func (h *ScheduleHandler) Ownership(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
    }
    uid, _, ok := bearerUserID(c, h.Cfg.JWTSecret)
    if !ok {
        return c.JSON(http.StatusOK, echo.Map{"owner": false})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    return c.JSON(http.StatusOK, echo.Map{"owner": h.Engine.Owns(ctx, uid, id)})
}

// scheduleError maps engine errors onto HTTP responses.  Validation
// messages go back verbatim so the client can show them to the performer.
func (h *ScheduleHandler) scheduleError(c echo.Context, err error, fallback string) error {
    switch {
    case schedule.IsValidationErr(err):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, schedule.ErrNoProfile):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrScheduleNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only change your own schedules"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
    }
}
