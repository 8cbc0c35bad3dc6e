package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification failure modes. The HTTP layer maps all three to 401,
// but they stay distinct for logging and tests.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// DefaultTokenTTL matches a seven-day session.
const DefaultTokenTTL = 168 * time.Hour

// Claims is the session token payload: the account id rides in the
// registered subject claim, the role in a private claim.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenIssuer mints and verifies HS256 session tokens. It is stateless
// apart from the signing key and safe for concurrent use.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
}

// NewTokenIssuer creates a TokenIssuer with the given HMAC key and token
// lifetime. A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenIssuer(key []byte, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{key: key, ttl: ttl}
}

// Issue produces a signed token carrying accountID and role, expiring
// ttl from now.
func (t *TokenIssuer) Issue(accountID uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the account id and role
// it carries. Failures are one of ErrTokenExpired, ErrTokenSignature, or
// ErrTokenMalformed.
func (t *TokenIssuer) Verify(tokenStr string) (uuid.UUID, string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, "", ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return uuid.Nil, "", ErrTokenSignature
		default:
			return uuid.Nil, "", ErrTokenMalformed
		}
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrTokenMalformed
	}
	return accountID, claims.Role, nil
}
