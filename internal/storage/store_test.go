package storage

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
)

func TestUploadAndPublicURL(t *testing.T) {
    root := t.TempDir()
    s := New(root, "https://buskabout.app")

    url, err := s.Upload("buskers", "7/photo.jpg", strings.NewReader("jpeg-bytes"))
    if err != nil {
        t.Fatalf("Upload: %v", err)
    }
    if url != "https://buskabout.app/storage/buskers/7/photo.jpg" {
        t.Fatalf("url = %q", url)
    }

    data, err := os.ReadFile(filepath.Join(root, "buskers", "7", "photo.jpg"))
    if err != nil {
        t.Fatalf("read back: %v", err)
    }
    if string(data) != "jpeg-bytes" {
        t.Fatalf("content = %q", data)
    }

    // Upsert: same path overwrites.
    if _, err := s.Upload("buskers", "7/photo.jpg", strings.NewReader("newer")); err != nil {
        t.Fatalf("second upload: %v", err)
    }
    data, _ = os.ReadFile(filepath.Join(root, "buskers", "7", "photo.jpg"))
    if string(data) != "newer" {
        t.Fatalf("overwrite failed: %q", data)
    }
}

func TestRelativeURLsWithoutBase(t *testing.T) {
    s := New(t.TempDir(), "")
    if got := s.PublicURL("buskers", "1/a.png"); got != "/storage/buskers/1/a.png" {
        t.Fatalf("url = %q", got)
    }
}

func TestUploadRejectsTraversal(t *testing.T) {
    s := New(t.TempDir(), "")
    if _, err := s.Upload("buskers", "../../etc/passwd", strings.NewReader("x")); err == nil {
        t.Fatal("traversal path accepted")
    }
}

func TestRemoveMissingIsNoError(t *testing.T) {
    s := New(t.TempDir(), "")
    if err := s.Remove("buskers", "1/never-there.jpg"); err != nil {
        t.Fatalf("Remove: %v", err)
    }
}

func TestObjectName(t *testing.T) {
    a := ObjectName(7, "My Photo.JPG")
    b := ObjectName(7, "My Photo.JPG")
    if a == b {
        t.Fatal("object names collide")
    }
    if !strings.HasPrefix(a, "7/") || !strings.HasSuffix(a, ".jpg") {
        t.Fatalf("object name shape wrong: %q", a)
    }
}
