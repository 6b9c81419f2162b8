package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"transit-tracking-service/internal/api/handlers"
	"transit-tracking-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by bearer tokens. Tokens are issued by the account service;
// this service only verifies them.
type Claims struct {
	UserID  int64  `json:"user_id"`
	Role    string `json:"role"`
	Blocked bool   `json:"blocked"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and turns them into identities.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Issue signs a token for id. Used by tooling and tests.
func (a *Authenticator) Issue(id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  id.ID,
		Role:    string(id.Role),
		Blocked: id.Blocked,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", id.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Parse(tokenString string) (domain.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return domain.Identity{}, errors.New("parse token: invalid token")
	}
	if claims.UserID <= 0 {
		return domain.Identity{}, errors.New("parse token: missing user_id")
	}

	role := domain.Role(strings.ToLower(strings.TrimSpace(claims.Role)))
	switch role {
	case domain.RoleDriver, domain.RoleAdmin, domain.RolePassenger:
	default:
		return domain.Identity{}, fmt.Errorf("parse token: unknown role %q", claims.Role)
	}

	return domain.Identity{ID: claims.UserID, Role: role, Blocked: claims.Blocked}, nil
}

// Middleware rejects requests without a valid bearer token with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return a.authenticate(next, true)
}

// Optional lets anonymous requests through without an identity.
// A token that is present but invalid is still rejected with 401.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return a.authenticate(next, false)
}

func (a *Authenticator) authenticate(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" && !required {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			handlers.WriteError(w, r, http.StatusUnauthorized, handlers.CodeUnauthorized, "authorization header missing or invalid")
			return
		}

		id, err := a.Parse(parts[1])
		if err != nil {
			handlers.WriteError(w, r, http.StatusUnauthorized, handlers.CodeUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.WithIdentity(r.Context(), id)))
	})
}
