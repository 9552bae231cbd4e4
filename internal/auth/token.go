package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/helpdeskhq/support-desk/internal/domain"
)

// TokenManager handles issuing and validating identity tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager. A non-positive ttl issues tokens without expiry.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl < 0 {
		ttl = 0
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Claims describes the JWT payload.
type Claims struct {
	UserID   string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the caller identity.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{ID: c.UserID, Username: c.Username, Email: c.Email, Role: c.Role}
}

// GenerateToken signs a token for the identity. The returned expiry is zero when tokens do not expire.
func (tm *TokenManager) GenerateToken(identity domain.Identity) (string, time.Time, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  identity.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	var expiresAt time.Time
	if tm.ttl > 0 {
		expiresAt = now.Add(tm.ttl)
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, errors.New("incomplete token claims")
	}
	return claims, nil
}
