package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the session token claims.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// DefaultTTL is the default session lifetime.
const DefaultTTL = 7 * 24 * time.Hour

// Issuer is stamped on every session token and required when validating.
const Issuer = "piso"

// ErrInvalidToken is returned for tokens that parse but carry no usable claims.
var ErrInvalidToken = errors.New("invalid token")

// GenerateToken creates a signed session token for a roommate with a unique JTI.
func GenerateToken(secret string, ttl time.Duration, userID int64, username string, isAdmin bool) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()

	claims := Claims{
		UserID:   userID,
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a session token, returning the claims.
// Only HS256 tokens issued by this server with an expiry and a JTI are
// accepted, since revocation is keyed on the JTI.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
