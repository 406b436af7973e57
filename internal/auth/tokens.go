package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "escrowd"

var (
	ErrEmptySigningSecret = errors.New("signing secret must not be empty")
	ErrInvalidToken       = errors.New("token is invalid")
	ErrTokenRoleMismatch  = errors.New("token role does not grant access")
)

// Claims is the access-token payload. Subject carries the account id and
// Role the access scope (builder, admin or buyer).
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	nowFn  func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, ErrEmptySigningSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(trimmed), ttl: ttl, nowFn: time.Now}, nil
}

// Issue returns a signed token for the given account.
func (issuer *TokenIssuer) Issue(subjectID string, role string, name string) (string, error) {
	now := issuer.nowFn()
	claims := Claims{
		Role: role,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(issuer.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(issuer.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the signed token and returns its claims.
func (issuer *TokenIssuer) Verify(signed string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return issuer.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(func() time.Time { return issuer.nowFn() }))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
