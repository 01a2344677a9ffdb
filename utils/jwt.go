package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pedulirasa/backend/config"
)

// TokenTTL is how long an issued access token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// Claims carries the authenticated identity inside an access token.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed HS256 token for the user.
func GenerateToken(userID uint, email string, duration time.Duration) (string, error) {
	if duration <= 0 {
		duration = TokenTTL
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "pedulirasa",
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.Get().JWTSecret))
}

// ParseToken validates signature and expiry and returns the claims.
func ParseToken(tokenStr string) (*Claims, error) {
	secret := []byte(config.Get().JWTSecret)
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
