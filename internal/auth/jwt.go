package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Settings configures token signing and validation.
type Settings struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

var (
	mu       sync.RWMutex
	settings = Settings{
		Secret:   "development-insecure-secret-change-me",
		Issuer:   "task-management-api",
		Audience: "task-management-clients",
		TTL:      24 * time.Hour,
	}
)

// Configure replaces the token settings. Empty fields keep their current value.
func Configure(s Settings) {
	mu.Lock()
	defer mu.Unlock()
	if s.Secret != "" {
		settings.Secret = s.Secret
	}
	if s.Issuer != "" {
		settings.Issuer = s.Issuer
	}
	if s.Audience != "" {
		settings.Audience = s.Audience
	}
	if s.TTL > 0 {
		settings.TTL = s.TTL
	}
}

func current() Settings {
	mu.RLock()
	defer mu.RUnlock()
	return settings
}

// Claims represents the JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken generates a JWT token for the given user
func GenerateToken(userID, email string) (string, error) {
	s := current()
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.Secret))
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	s := current()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.Secret), nil
	},
		jwt.WithIssuer(s.Issuer),
		jwt.WithAudience(s.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
