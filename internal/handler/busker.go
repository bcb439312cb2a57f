package handler

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/buskabout/buskabout/internal/config"
    "github.com/buskabout/buskabout/internal/model"
    "github.com/buskabout/buskabout/internal/repository"
)

// BuskerHandler serves the public performer directory and the caller's own
// profile.  One profile per user: mutations address "the caller's profile"
// rather than an id, so ownership never rides in the request.
type BuskerHandler struct {
    Cfg     config.Config
    Buskers *repository.BuskerRepo
}

func NewBuskerHandler(cfg config.Config, b *repository.BuskerRepo) *BuskerHandler {
    return &BuskerHandler{Cfg: cfg, Buskers: b}
}

// ----- DTOs -----

type buskerReq struct {
    Genre        string `json:"genre"`
    Description  string `json:"description"`
    Location     string `json:"location"`
    MainPhoto    string `json:"main_photo"`
    YoutubeURL   string `json:"youtube_url"`
    InstagramURL string `json:"instagram_url"`
    WebsiteURL   string `json:"website_url"`
    TipURL       string `json:"tip_url"`
}

type buskerResp struct {
    ID           uint64              `json:"id"`
    Username     string              `json:"username"`
    Email        string              `json:"email"`
    Genre        string              `json:"genre"`
    Description  string              `json:"description"`
    Location     string              `json:"location"`
    MainPhoto    string              `json:"main_photo"`
    YoutubeURL   string              `json:"youtube_url"`
    InstagramURL string              `json:"instagram_url"`
    WebsiteURL   string              `json:"website_url"`
    TipURL       string              `json:"tip_url"`
    Gallery      []model.GalleryItem `json:"gallery_contents"`
    CreatedAt    time.Time           `json:"created_at"`
    UpdatedAt    time.Time           `json:"updated_at"`
}

func toBuskerResp(b *model.Busker) buskerResp {
    gallery := b.Gallery
    if gallery == nil {
        gallery = []model.GalleryItem{}
    }
    return buskerResp{
        ID:           b.ID,
        Username:     b.Username,
        Email:        b.Email,
        Genre:        b.Genre,
        Description:  b.Description,
        Location:     b.Location,
        MainPhoto:    b.MainPhoto,
        YoutubeURL:   b.YoutubeURL,
        InstagramURL: b.InstagramURL,
        WebsiteURL:   b.WebsiteURL,
        TipURL:       b.TipURL,
        Gallery:      gallery,
        CreatedAt:    b.CreatedAt,
        UpdatedAt:    b.UpdatedAt,
    }
}

// List returns the directory, optionally filtered by ?genre=.  When the
// caller presents a valid bearer token and owns a profile, that profile is
// moved to the front so performers see their own card first.  The route
// itself stays public.
func (h *BuskerHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    genre := strings.TrimSpace(c.QueryParam("genre"))
    buskers, err := h.Buskers.List(ctx, genre)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }

    if uid, _, ok := bearerUserID(c, h.Cfg.JWTSecret); ok {
        for i := range buskers {
            if buskers[i].UserID == uid && i > 0 {
                own := buskers[i]
                copy(buskers[1:i+1], buskers[0:i])
                buskers[0] = own
                break
            }
        }
    }

    out := make([]buskerResp, len(buskers))
    for i := range buskers {
        out[i] = toBuskerResp(&buskers[i])
    }
    return c.JSON(http.StatusOK, echo.Map{"buskers": out})
}

// GetByUsername returns one public profile by its handle.
func (h *BuskerHandler) GetByUsername(c echo.Context) error {
    username := c.Param("username")
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b, err := h.Buskers.GetByUsername(ctx, username)
    if err != nil {
        if errors.Is(err, repository.ErrBuskerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "busker not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, toBuskerResp(b))
}

// Me returns the caller's own profile (protected).
func (h *BuskerHandler) Me(c echo.Context) error {
    uid, ok := userIDFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b, err := h.Buskers.GetByUserID(ctx, uid)
    if err != nil {
        if errors.Is(err, repository.ErrBuskerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "busker not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, toBuskerResp(b))
}

// Create registers the caller as a busker.  The profile takes its username
// and email from the account, so a display name can never diverge from the
// login identity.
func (h *BuskerHandler) Create(c echo.Context) error {
    uid, ok := userIDFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    // The profile's handle is copied from the token's name claim; a token
    // without one must not mint a profile with an empty username.
    username, _ := c.Get("username").(string)
    if username == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token claims"})
    }

    var req buskerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if strings.TrimSpace(req.Genre) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "genre required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b := model.Busker{
        UserID:       uid,
        Username:     username,
        Genre:        strings.TrimSpace(req.Genre),
        Description:  req.Description,
        Location:     req.Location,
        MainPhoto:    req.MainPhoto,
        YoutubeURL:   req.YoutubeURL,
        InstagramURL: req.InstagramURL,
        WebsiteURL:   req.WebsiteURL,
        TipURL:       req.TipURL,
        Gallery:      []model.GalleryItem{},
    }
    if err := h.Buskers.Create(ctx, &b); err != nil {
        switch {
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "you already have a busker profile"})
        case errors.Is(err, repository.ErrUsernameInUse):
            return c.JSON(http.StatusConflict, echo.Map{"error": "display name already in use"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create profile failed"})
        }
    }
    return c.JSON(http.StatusCreated, toBuskerResp(&b))
}

// Update rewrites the editable fields of the caller's profile.
func (h *BuskerHandler) Update(c echo.Context) error {
    uid, ok := userIDFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req buskerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b, err := h.Buskers.GetByUserID(ctx, uid)
    if err != nil {
        if errors.Is(err, repository.ErrBuskerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "busker not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }

    b.Genre = strings.TrimSpace(req.Genre)
    b.Description = req.Description
    b.Location = req.Location
    b.MainPhoto = req.MainPhoto
    b.YoutubeURL = req.YoutubeURL
    b.InstagramURL = req.InstagramURL
    b.WebsiteURL = req.WebsiteURL
    b.TipURL = req.TipURL
    if b.Genre == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "genre required"})
    }

    if err := h.Buskers.UpdateByIDAndOwner(ctx, b, uid); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "busker not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update profile failed"})
    }
    return c.JSON(http.StatusOK, toBuskerResp(b))
}

// Delete removes the caller's profile.
func (h *BuskerHandler) Delete(c echo.Context) error {
    uid, ok := userIDFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b, err := h.Buskers.GetByUserID(ctx, uid)
    if err != nil {
        if errors.Is(err, repository.ErrBuskerNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "busker not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if err := h.Buskers.DeleteByIDAndOwner(ctx, b.ID, uid); err != nil {
        switch {
        case errors.Is(err, repository.ErrBuskerNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "busker not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete profile failed"})
        }
    }
    return c.NoContent(http.StatusNoContent)
}
