package handler

import (
    "strconv"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// userIDFrom converts the "user_id" context value set by the JWT middleware
// to uint64.  Numeric JWT claims decode as float64.
func userIDFrom(c echo.Context) (uint64, bool) {
    switch t := c.Get("user_id").(type) {
    case uint64:
        return t, true
    case int:
        return uint64(t), true
    case int64:
        return uint64(t), true
    case float64:
        return uint64(t), true
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, true
        }
    }
    return 0, false
}

// bearerUserID parses an optional Authorization bearer on routes that stay
// public but personalize their response for signed-in callers.  It returns
// the subject and username claims, or ok=false when no valid token is
// present.  Invalid tokens are treated the same as absent ones.
func bearerUserID(c echo.Context, secret string) (uid uint64, username string, ok bool) {
    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return 0, "", false
    }
    raw := strings.TrimPrefix(auth, "Bearer ")
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, echo.ErrUnauthorized
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return 0, "", false
    }
    claims, okClaims := tok.Claims.(jwt.MapClaims)
    if !okClaims {
        return 0, "", false
    }
    switch sub := claims["sub"].(type) {
    case float64:
        uid = uint64(sub)
    case string:
        if n, err := strconv.ParseUint(sub, 10, 64); err == nil {
            uid = n
        }
    }
    if uid == 0 {
        return 0, "", false
    }
    if name, okName := claims["name"].(string); okName {
        username = name
    }
    return uid, username, true
}
