package handler

import (
    "context"
    "database/sql"
    "fmt"
    "net/http"
    "regexp"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/buskabout/buskabout/internal/config"
    "github.com/buskabout/buskabout/internal/repository"
    "github.com/buskabout/buskabout/internal/session"
    "github.com/buskabout/buskabout/internal/utils"
)

// usernameRe is the shape every account username must match: letters,
// digits and underscores, at least three characters.  Usernames appear in
// profile URLs and on schedule markers, so the alphabet stays URL-safe.
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,}$`)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg      config.Config
    Users    *repository.UserRepo
    Tokens   *repository.TokenRepo
    Sessions *session.Notifier
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, s *session.Notifier) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Sessions: s}
}

// ----- DTOs -----

type registerReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
    Username string `json:"username"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}
type oauthReq struct {
    Provider string `json:"provider"`
    Email    string `json:"email"`
    Username string `json:"username"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID       uint64 `json:"id"`
    Email    string `json:"email"`
    Username string `json:"username"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// issuePair creates a fresh access/refresh pair for a user and stores the
// refresh hash.  Shared by register, login, the OAuth callback and refresh.
func (h *AuthHandler) issuePair(ctx context.Context, uid uint64, username string) (utils.AccessToken, utils.RefreshToken, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, username, h.Cfg.AccessTTLMin)
    if err != nil {
        return utils.AccessToken{}, utils.RefreshToken{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return utils.AccessToken{}, utils.RefreshToken{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, uid, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return utils.AccessToken{}, utils.RefreshToken{}, err
    }
    return access, refresh, nil
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.Username = strings.TrimSpace(req.Username)
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }
    if !usernameRe.MatchString(req.Username) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "username must be at least 3 characters: letters, numbers, underscores"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    // Pre-check availability so the common case gets a clear message; the
    // unique index still decides under races.
    taken, err := h.Users.UsernameTaken(ctx, req.Username)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if taken {
        return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
    }

    uid, err := h.Users.Create(ctx, req.Email, req.Username, req.Password, h.Cfg.BcryptCost)
    if err != nil {
        if err == repository.ErrEmailExists {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        if err == repository.ErrUsernameExists {
            return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }

    access, refresh, err := h.issuePair(ctx, uid, req.Username)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
    }
    h.Sessions.Publish(ctx, session.Event{Kind: session.SignedIn, UserID: uid, Username: req.Username})

    return c.JSON(http.StatusCreated, authResp{
        User:    userPart{ID: uid, Email: req.Email, Username: req.Username},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    })
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    access, refresh, err := h.issuePair(ctx, u.ID, u.Username)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
    }
    h.Sessions.Publish(ctx, session.Event{Kind: session.SignedIn, UserID: u.ID, Username: u.Username})

    return c.JSON(http.StatusOK, authResp{
        User:    userPart{ID: u.ID, Email: u.Email, Username: u.Username},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
    })
}

// OAuthCallback completes a third-party sign-in.  The provider has already
// verified the email; on first sight the account is created with the
// provider's profile data, otherwise the existing account signs in.
func (h *AuthHandler) OAuthCallback(c echo.Context) error {
    var req oauthReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.Username = strings.TrimSpace(req.Username)
    if req.Provider == "" || req.Email == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "provider/email required"})
    }
    // The local part seeds the derived username below, so the address must
    // at least carry one.
    if i := strings.Index(req.Email, "@"); i <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil && err != sql.ErrNoRows {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if err == sql.ErrNoRows {
        // First sign-in through this provider: derive a username from the
        // provider profile or the email local part, then suffix until free.
        base := req.Username
        if base == "" {
            base = req.Email[:strings.Index(req.Email, "@")]
        }
        base = sanitizeUsername(base)
        name := base
        for i := 0; ; i++ {
            taken, err := h.Users.UsernameTaken(ctx, name)
            if err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
            }
            if !taken {
                break
            }
            if i >= 5 {
                return c.JSON(http.StatusConflict, echo.Map{"error": "could not allocate a username"})
            }
            name = fmt.Sprintf("%s_%d", base, i+1)
        }
        uid, err := h.Users.CreateOAuth(ctx, req.Email, name, req.Provider)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
        }
        u, err = h.Users.GetByID(ctx, uid)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
        }
    }

    access, refresh, err := h.issuePair(ctx, u.ID, u.Username)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
    }
    h.Sessions.Publish(ctx, session.Event{Kind: session.SignedIn, UserID: u.ID, Username: u.Username})

    return c.JSON(http.StatusOK, authResp{
        User:    userPart{ID: u.ID, Email: u.Email, Username: u.Username},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
    })
}

// sanitizeUsername strips characters outside the username alphabet and pads
// short results so the derived name always validates.
func sanitizeUsername(s string) string {
    var b strings.Builder
    for _, r := range s {
        switch {
        case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
            b.WriteRune(r)
        }
    }
    out := b.String()
    for len(out) < 3 {
        out += "_"
    }
    return out
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    raw := strings.TrimSpace(req.RefreshToken)
    hash := utils.HashRefreshRaw(raw)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    _ = h.Tokens.RevokeByHash(ctx, hash)

    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }

    access, refresh, err := h.issuePair(ctx, userID, u.Username)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
    }
    h.Sessions.Publish(ctx, session.Event{Kind: session.Refreshed, UserID: userID, Username: u.Username})

    return c.JSON(http.StatusOK, authResp{
        User:    userPart{ID: userID, Email: u.Email, Username: u.Username},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
    })
}

// RefreshAccess: validate a refresh token and return a new access token
// without rotating the refresh token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    raw := strings.TrimSpace(req.RefreshToken)
    hash := utils.HashRefreshRaw(raw)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, u.Username, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access": tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Logout revokes a specific refresh token, or every session of the caller.
// A valid bearer with no refresh_token in the body signs the user out
// everywhere; a refresh_token alone ends that one session.  The route is
// not behind the JWT middleware so either credential works.
func (h *AuthHandler) Logout(c echo.Context) error {
    uid, username, hasBearer := bearerUserID(c, h.Cfg.JWTSecret)

    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if hasBearer && refreshToken == "" {
        if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        h.Sessions.Publish(ctx, session.Event{Kind: session.SignedOut, UserID: uid, Username: username})
        return c.NoContent(http.StatusNoContent)
    }
    if refreshToken != "" {
        hash := utils.HashRefreshRaw(refreshToken)
        userID, err := h.Tokens.ValidateRefresh(ctx, hash)
        if err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        h.Sessions.Publish(ctx, session.Event{Kind: session.SignedOut, UserID: userID})
        return c.NoContent(http.StatusNoContent)
    }
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "user_id":  c.Get("user_id"),
        "username": c.Get("username"),
    })
}
