package handler

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/buskabout/buskabout/internal/config"
    "github.com/buskabout/buskabout/internal/session"
)

// postJSON builds an echo context for a JSON POST body.
func postJSON(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    return e.NewContext(req, rec), rec
}

func TestOAuthCallbackRejectsMalformedEmail(t *testing.T) {
    // Repos stay nil: a malformed address must be rejected before the
    // handler reaches for the store.
    h := NewAuthHandler(config.Config{JWTSecret: "secret"}, nil, nil, session.NewNotifier(nil))

    cases := []struct {
        name string
        body string
    }{
        {"no at sign", `{"provider":"google","email":"no-at-sign","username":""}`},
        {"empty local part", `{"provider":"google","email":"@example.com"}`},
        {"missing email", `{"provider":"google"}`},
        {"missing provider", `{"email":"busker@example.com"}`},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c, rec := postJSON(t, tc.body)
            if err := h.OAuthCallback(c); err != nil {
                t.Fatalf("OAuthCallback: %v", err)
            }
            if rec.Code != http.StatusBadRequest {
                t.Fatalf("status = %d, want 400", rec.Code)
            }
            var resp map[string]string
            if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
                t.Fatalf("body not JSON: %v", err)
            }
            if resp["error"] == "" {
                t.Fatal("error message missing")
            }
        })
    }
}

func TestSanitizeUsername(t *testing.T) {
    cases := []struct{ in, want string }{
        {"alice.sax!", "alicesax"},
        {"ab", "ab_"},
        {"", "___"},
        {"busker_1", "busker_1"},
    }
    for _, tc := range cases {
        if got := sanitizeUsername(tc.in); got != tc.want {
            t.Errorf("sanitizeUsername(%q) = %q, want %q", tc.in, got, tc.want)
        }
    }
}
