package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/buskabout/buskabout/internal/model"
    "github.com/buskabout/buskabout/internal/repository"
    "github.com/buskabout/buskabout/internal/storage"
)

// mediaBucket holds every profile photo and gallery upload.
const mediaBucket = "buskers"

// maxUploadBytes bounds a single media upload (32 MiB).
const maxUploadBytes = 32 << 20

// GalleryHandler manages the media attached to the caller's profile: the
// ordered gallery list persisted on the busker row, and the uploads that
// back its URLs.
type GalleryHandler struct {
    Buskers *repository.BuskerRepo
    Objects *storage.Store
}

func NewGalleryHandler(b *repository.BuskerRepo, s *storage.Store) *GalleryHandler {
    return &GalleryHandler{Buskers: b, Objects: s}
}

type galleryItemReq struct {
    URL  string `json:"url"`
    Kind string `json:"type"`
}

// AddItem appends one media entry to the caller's gallery.  The nine-item
// cap and the media kind are checked before anything is written.
func (h *GalleryHandler) AddItem(c echo.Context) error {
    uid, ok := userIDFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req galleryItemReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.URL = strings.TrimSpace(req.URL)
    if req.URL == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "url required"})
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

    if err := b.AppendGalleryItem(model.GalleryItem{URL: req.URL, Kind: req.Kind}); err != nil {
        switch {
        case errors.Is(err, model.ErrGalleryFull):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "gallery is full (max 9 items)"})
        case errors.Is(err, model.ErrBadMediaKind):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be image or video"})
        default:
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
    }
    if err := h.Buskers.UpdateGallery(ctx, uid, b.Gallery); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save gallery failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"gallery_contents": b.Gallery})
}

// RemoveItem deletes the gallery entry at :index, keeping the remaining
// order.  The backing object is removed too when the URL points into our
// own media bucket.
func (h *GalleryHandler) RemoveItem(c echo.Context) error {
    uid, ok := userIDFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    index, err := strconv.Atoi(c.Param("index"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid index"})
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

    var removed model.GalleryItem
    if index >= 0 && index < len(b.Gallery) {
        removed = b.Gallery[index]
    }
    if err := b.RemoveGalleryItem(index); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "gallery index out of range"})
    }
    if err := h.Buskers.UpdateGallery(ctx, uid, b.Gallery); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save gallery failed"})
    }

    if objectPath, ok := h.ownObjectPath(removed.URL); ok {
        _ = h.Objects.Remove(mediaBucket, objectPath) // best-effort
    }
    return c.JSON(http.StatusOK, echo.Map{"gallery_contents": b.Gallery})
}

// Upload stores one multipart file under the caller's namespace in the
// media bucket and returns its public URL.  The client then attaches that
// URL as its main photo or a gallery item.
func (h *GalleryHandler) Upload(c echo.Context) error {
    uid, ok := userIDFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    fh, err := c.FormFile("file")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
    }
    if fh.Size > maxUploadBytes {
        return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
    }
    src, err := fh.Open()
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "read upload failed"})
    }
    defer src.Close()

    objectPath := storage.ObjectName(uid, fh.Filename)
    url, err := h.Objects.Upload(mediaBucket, objectPath, src)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store upload failed"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"url": url, "path": objectPath})
}

// ownObjectPath extracts the bucket-relative object path from a public URL
// issued by this service's media bucket; foreign URLs return ok=false.
func (h *GalleryHandler) ownObjectPath(url string) (string, bool) {
    marker := "/storage/" + mediaBucket + "/"
    i := strings.Index(url, marker)
    if i < 0 {
        return "", false
    }
    p := url[i+len(marker):]
    if p == "" {
        return "", false
    }
    return p, true
}
