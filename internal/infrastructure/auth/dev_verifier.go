package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DevVerifier is the development-mode TokenVerifier: it mints and verifies
// HS256 tokens locally so the REST and websocket surfaces can be exercised
// without Firebase credentials. Never wired in production.
type DevVerifier struct {
	secret []byte
}

func NewDevVerifier(secret string) *DevVerifier {
	return &DevVerifier{secret: []byte(secret)}
}

func (v *DevVerifier) Verify(ctx context.Context, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", fmt.Errorf("token carries no uid claim")
	}

	return uid, nil
}

// Mint issues a token for the given uid, used by the development token
// endpoint.
func (v *DevVerifier) Mint(uid string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"uid": uid,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
