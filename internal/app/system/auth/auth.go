// Package auth verifies bearer tokens issued by the identity provider and
// puts the signed-in user on the request context.
//
// Provider tokens carry the verified phone number; the first request with an
// unknown phone creates the user. Tokens minted by IssueToken carry the user
// id instead. Either way the user is re-read on every request so role
// changes and deactivation take effect immediately.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/respond"
	"github.com/dalemusser/expensehub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Claims is the JWT payload.
type Claims struct {
	UserID string      `json:"user_id,omitempty"`
	Phone  string      `json:"phone_number,omitempty"`
	Name   string      `json:"name,omitempty"`
	Role   models.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserFetcher loads the current state of a user. Both methods return nil
// when the user is inactive or cannot be loaded.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *models.User
	// FetchOrCreateByPhone returns the user registered under phone,
	// creating a plain user named name on first login.
	FetchOrCreateByPhone(ctx context.Context, phone, name string) *models.User
}

// Manager validates tokens and loads users.
type Manager struct {
	secret  []byte
	issuer  string
	fetcher UserFetcher
	log     *zap.Logger
}

// NewManager creates a Manager. secret is the shared HS256 key; issuer, when
// set, must match the token's iss claim.
func NewManager(secret, issuer string, fetcher UserFetcher, logger *zap.Logger) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if len(secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended", zap.Int("length", len(secret)))
	}
	return &Manager{
		secret:  []byte(secret),
		issuer:  issuer,
		fetcher: fetcher,
		log:     logger,
	}, nil
}

// IssueToken signs a token for u valid for ttl. The identity provider mints
// production tokens; this is used by tooling and tests.
func (m *Manager) IssueToken(u *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: u.ID.Hex(),
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken validates the signature, expiry and issuer of a token.
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.UserID == "" && claims.Phone == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" && claims.Phone == "" {
		return nil, fmt.Errorf("token has no user id or phone: %w", jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}

// LoadUser injects the user into context when the request carries a valid
// bearer token for an active user. Requests without one pass through.
func (m *Manager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.ParseToken(tokenString)
		if err != nil {
			m.log.Debug("rejected bearer token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		var u *models.User
		if claims.Phone != "" {
			u = m.fetcher.FetchOrCreateByPhone(r.Context(), claims.Phone, claims.Name)
		} else {
			u = m.fetcher.FetchUser(r.Context(), claims.UserID)
		}
		if u != nil {
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects requests without a user in context with 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			respond.Message(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits signed-in users holding one of the allowed roles.
// Anonymous requests get 401, other roles 403.
func RequireRole(allowed ...models.Role) func(http.Handler) http.Handler {
	set := make(map[models.Role]struct{}, len(allowed))
	for _, role := range allowed {
		set[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				respond.Message(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, has := set[u.Role]; !has {
				respond.Message(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*models.User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*models.User)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context, bypassing token checks.
// Only tests should call it.
func WithTestUser(r *http.Request, u *models.User) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// Server-sent event clients that cannot set headers may pass ?access_token=.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
