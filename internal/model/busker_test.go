package model

import (
    "errors"
    "fmt"
    "testing"
)

func TestAppendGalleryItemCap(t *testing.T) {
    b := &Busker{}
    for i := 0; i < MaxGalleryItems-1; i++ {
        item := GalleryItem{URL: fmt.Sprintf("/storage/buskers/1/%d.jpg", i), Kind: MediaImage}
        if err := b.AppendGalleryItem(item); err != nil {
            t.Fatalf("append %d: %v", i, err)
        }
    }

    // 8 -> 9 is accepted.
    if err := b.AppendGalleryItem(GalleryItem{URL: "/storage/buskers/1/last.mp4", Kind: MediaVideo}); err != nil {
        t.Fatalf("append at %d items: %v", MaxGalleryItems-1, err)
    }
    if len(b.Gallery) != MaxGalleryItems {
        t.Fatalf("gallery len = %d, want %d", len(b.Gallery), MaxGalleryItems)
    }

    // The tenth item is rejected and the gallery is untouched.
    err := b.AppendGalleryItem(GalleryItem{URL: "/storage/buskers/1/extra.jpg", Kind: MediaImage})
    if !errors.Is(err, ErrGalleryFull) {
        t.Fatalf("err = %v, want ErrGalleryFull", err)
    }
    if len(b.Gallery) != MaxGalleryItems {
        t.Fatalf("gallery grew past the cap: %d", len(b.Gallery))
    }
}

func TestAppendGalleryItemKind(t *testing.T) {
    b := &Busker{}
    err := b.AppendGalleryItem(GalleryItem{URL: "/x", Kind: "gif"})
    if !errors.Is(err, ErrBadMediaKind) {
        t.Fatalf("err = %v, want ErrBadMediaKind", err)
    }
    if len(b.Gallery) != 0 {
        t.Fatal("invalid item was appended")
    }
}

func TestRemoveGalleryItem(t *testing.T) {
    b := &Busker{Gallery: []GalleryItem{
        {URL: "/a", Kind: MediaImage},
        {URL: "/b", Kind: MediaVideo},
        {URL: "/c", Kind: MediaImage},
    }}
    if err := b.RemoveGalleryItem(1); err != nil {
        t.Fatalf("remove: %v", err)
    }
    if len(b.Gallery) != 2 || b.Gallery[0].URL != "/a" || b.Gallery[1].URL != "/c" {
        t.Fatalf("order not preserved: %+v", b.Gallery)
    }

    if err := b.RemoveGalleryItem(-1); err == nil {
        t.Error("negative index accepted")
    }
    if err := b.RemoveGalleryItem(2); err == nil {
        t.Error("out-of-range index accepted")
    }
}
