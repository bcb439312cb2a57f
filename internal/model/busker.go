package model

import (
    "errors"
    "time"
)

// MaxGalleryItems caps how many media items a busker profile may attach.
const MaxGalleryItems = 9

// Media kinds accepted in a gallery.
const (
    MediaImage = "image"
    MediaVideo = "video"
)

// ErrGalleryFull is returned when adding an item to a gallery that already
// holds MaxGalleryItems entries.
var ErrGalleryFull = errors.New("gallery is full")

// ErrBadMediaKind is returned for gallery items whose kind is neither
// image nor video.
var ErrBadMediaKind = errors.New("unsupported media kind")

// GalleryItem is one attached media entry on a busker profile.  The whole
// gallery is persisted as a single JSON column (`buskers.gallery_contents`)
// so item order survives round trips.
type GalleryItem struct {
    URL  string `json:"url"`
    Kind string `json:"type"` // "image" | "video"
}

// Busker is a performer's directory entry as stored in the `buskers`
// table.  At most one profile exists per user; the username is copied
// from the owning user at creation and addresses the profile in URLs.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – owning user (unique).
//  Username     – public handle, unique across profiles.
//  Email        – contact email shown on the profile.
//  Genre        – open genre string (Musician, Dancer, ...).
//  Description  – free-text description.
//  Location     – location tag (suburb / landmark).
//  MainPhoto    – public URL of the main profile photo.
//  YoutubeURL   – optional social link.
//  InstagramURL – optional social link.
//  WebsiteURL   – optional social link.
//  TipURL       – optional tipping link.
//  Gallery      – ordered media items, at most MaxGalleryItems.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Busker struct {
    ID           uint64        // buskers.id
    UserID       uint64        // buskers.user_id
    Username     string        // buskers.username
    Email        string        // buskers.email
    Genre        string        // buskers.genre
    Description  string        // buskers.description
    Location     string        // buskers.location
    MainPhoto    string        // buskers.main_photo
    YoutubeURL   string        // buskers.youtube_url
    InstagramURL string        // buskers.instagram_url
    WebsiteURL   string        // buskers.website_url
    TipURL       string        // buskers.tip_url
    Gallery      []GalleryItem // buskers.gallery_contents (JSON)
    CreatedAt    time.Time     // buskers.created_at
    UpdatedAt    time.Time     // buskers.updated_at
}

// AppendGalleryItem validates and appends a media item, enforcing the
// MaxGalleryItems cap.  The cap check happens before the write so a full
// gallery is never touched.
func (b *Busker) AppendGalleryItem(item GalleryItem) error {
    if item.Kind != MediaImage && item.Kind != MediaVideo {
        return ErrBadMediaKind
    }
    if len(b.Gallery) >= MaxGalleryItems {
        return ErrGalleryFull
    }
    b.Gallery = append(b.Gallery, item)
    return nil
}

// RemoveGalleryItem deletes the item at the given index, preserving the
// order of the remaining entries.  Out-of-range indexes are reported.
func (b *Busker) RemoveGalleryItem(index int) error {
    if index < 0 || index >= len(b.Gallery) {
        return errors.New("gallery index out of range")
    }
    b.Gallery = append(b.Gallery[:index], b.Gallery[index+1:]...)
    return nil
}
