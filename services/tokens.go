package services

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"speed/models"
)

var expiryPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseExpiry converts a human-readable duration like "30m" or "2h" into a
// time.Duration. Unparseable input falls back to one hour.
func ParseExpiry(s string) time.Duration {
	match := expiryPattern.FindStringSubmatch(s)
	if match == nil {
		return time.Hour
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return time.Hour
	}
	switch match[2] {
	case "s":
		return time.Duration(value) * time.Second
	case "m":
		return time.Duration(value) * time.Minute
	case "h":
		return time.Duration(value) * time.Hour
	case "d":
		return time.Duration(value) * 24 * time.Hour
	}
	return time.Hour
}

// Claims is the payload embedded in issued bearer tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies the bearer tokens used by the API.
type TokenService struct {
	secret []byte
	expiry time.Duration
}

// NewTokenService creates a token service with the given HMAC secret and
// expiry string (e.g. "1h").
func NewTokenService(secret, expiresIn string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		expiry: ParseExpiry(expiresIn),
	}
}

// Issue signs a token embedding the user's id, email and role.
func (t *TokenService) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.PublicID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses and validates a signed token and returns its claims.
func (t *TokenService) Verify(tokenString string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return &claims, nil
}
