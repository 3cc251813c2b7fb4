package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims identify one dashboard login. The upstream token rides inside the
// signed session so proxied calls can act as the vendor.
type Claims struct {
	VendorID      string `json:"vendor_id"`
	Email         string `json:"email"`
	UpstreamToken string `json:"upstream_token"`
	jwt.RegisteredClaims
}

// SessionID is unique per login and keys per-session server state.
func (c *Claims) SessionID() string {
	return c.ID
}

func GenerateToken(secret, vendorID, email, upstreamToken string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		VendorID:      vendorID,
		Email:         email,
		UpstreamToken: upstreamToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   vendorID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
