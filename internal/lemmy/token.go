package lemmy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields Lemmy puts into session tokens.
type Claims struct {
	jwt.RegisteredClaims
	// Shadows RegisteredClaims.Subject: older servers send a numeric sub.
	Sub json.Number `json:"sub"`
}

// TokenInfo is what the client can learn from a token without the server key.
type TokenInfo struct {
	LocalUserID int64
	Issuer      string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// ParseToken reads claims without verifying the signature; only the
// issuing instance can verify it.
func ParseToken(token string) (TokenInfo, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("parse token: %w", err)
	}
	info := TokenInfo{Issuer: claims.Issuer}
	if claims.Sub != "" {
		id, err := strconv.ParseInt(claims.Sub.String(), 10, 64)
		if err != nil {
			return TokenInfo{}, fmt.Errorf("parse token subject: %w", err)
		}
		info.LocalUserID = id
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
