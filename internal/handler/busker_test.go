package handler

import (
    "net/http"
    "testing"

    "github.com/buskabout/buskabout/internal/config"
)

func TestCreateProfileRequiresUsernameClaim(t *testing.T) {
    // Repo stays nil: a token without a name claim must be turned away
    // before any store access, never minting a profile with an empty
    // username.
    h := NewBuskerHandler(config.Config{}, nil)

    c, rec := postJSON(t, `{"genre":"Musician"}`)
    c.Set("user_id", float64(7)) // numeric claims decode as float64

    if err := h.Create(c); err != nil {
        t.Fatalf("Create: %v", err)
    }
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("status = %d, want 401", rec.Code)
    }
}

func TestCreateProfileRequiresIdentity(t *testing.T) {
    h := NewBuskerHandler(config.Config{}, nil)

    c, rec := postJSON(t, `{"genre":"Musician"}`)
    if err := h.Create(c); err != nil {
        t.Fatalf("Create: %v", err)
    }
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("status = %d, want 401", rec.Code)
    }
}
