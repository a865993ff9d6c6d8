package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Authenticator turns a bearer credential into an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// Lookup refreshes an identity from the user directory, if one is wired.
type Lookup func(ctx context.Context, id string) (Identity, error)

type Claims struct {
	Name  string `json:"name"`
	Staff bool   `json:"staff,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HS256 tokens issued by the account service.
type JWTAuthenticator struct {
	Secret []byte
	Issuer string
	Lookup Lookup
	TTL    time.Duration
	now    func() time.Time
}

func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{
		Secret: []byte(secret),
		Issuer: issuer,
		TTL:    72 * time.Hour,
		now:    time.Now,
	}
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.Issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	if a.Lookup != nil {
		ident, err := a.Lookup(ctx, claims.Subject)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return ident, nil
	}

	return Identity{ID: claims.Subject, DisplayName: claims.Name, IsStaff: claims.Staff}, nil
}

// Issue signs a token for ident. Used by the admin tool and tests.
func (a *JWTAuthenticator) Issue(ident Identity) (string, error) {
	now := a.now()
	claims := Claims{
		Name:  ident.DisplayName,
		Staff: ident.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			Issuer:    a.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}
