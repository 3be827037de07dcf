// Package auth implements password hashing, token issuing/verification and
// the middleware that resolves a bearer token to an authenticated identity.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued token stays valid. Tokens are not renewable;
// after expiry the client has to log in again.
const TokenTTL = time.Hour

// ErrInvalidToken covers every verification failure: malformed token, bad
// signature, expired token. Callers must not tell these apart in responses.
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and verifies HMAC-signed JWTs carrying the user id as
// the subject claim.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret []byte) *TokenService {
	return &TokenService{secret: secret, ttl: TokenTTL}
}

// Issue returns a signed token for userID, expiring after the fixed TTL.
func (s *TokenService) Issue(userID int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	return token.SignedString(s.secret)
}

// Verify parses and validates tokenString and returns the subject user id.
// Any failure comes back as ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (int64, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
