// Package auth issues and verifies the bearer tokens that the API layer
// turns into an Actor. The lifecycle services never see tokens, only the
// resolved identity.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/QuestFinTech/ext-market/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the authenticated identity and role set.
type Claims struct {
	UserID uuid.UUID     `json:"user_id"`
	Roles  []models.Role `json:"roles"`
	jwt.RegisteredClaims
}

// Actor converts verified claims to the identity the services consume.
func (c *Claims) Actor() models.Actor {
	return models.Actor{ID: c.UserID, Roles: c.Roles}
}

// NewToken signs an HS256 token for the user.
func NewToken(signingKey []byte, user *models.User, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: user.ID,
		Roles:  user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(signingKey)
}

// ParseToken verifies the signature and expiry and returns the claims.
func ParseToken(signingKey []byte, tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	var claims Claims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return signingKey, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
