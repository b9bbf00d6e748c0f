package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess TokenType = "access"
)

const (
	RoleOwner   = "owner"
	RoleArbiter = "arbiter"
)

// CallerClaims identify the ledger address acting on a request. Subject mirrors Address.
type CallerClaims struct {
	Address string    `json:"address"`
	Type    TokenType `json:"type"`
	Roles   []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *CallerClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type TokenManager interface {
	GenerateAccessToken(address string, roles []string) (string, error)
	ValidateToken(tokenString string) (*CallerClaims, error)
}

type tokenManager struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, expiry time.Duration) TokenManager {
	if issuer == "" {
		issuer = "rental-escrow"
	}
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &tokenManager{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

func (m *tokenManager) GenerateAccessToken(address string, roles []string) (string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return "", ErrInvalidToken
	}
	now := m.now()
	claims := CallerClaims{
		Address: address,
		Type:    TokenTypeAccess,
		Roles:   roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{"escrow-api"},
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*CallerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	// Populate Address from Subject if it was lost
	if claims.Address == "" {
		claims.Address = claims.Subject
	}
	if claims.Address == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
