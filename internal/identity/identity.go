// Package identity resolves who owns a cart: an authenticated user from a
// bearer token, or an anonymous guest keyed by an opaque token.
package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopflow-backend/pkg/auth"
	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
)

// HeaderGuestToken carries the guest cart key in both directions.
const HeaderGuestToken = "X-Guest-Token"

// Identity is the resolved cart owner for a request.
type Identity struct {
	Kind   enums.CartOwnerKind
	Key    string
	UserID uuid.UUID
	Role   enums.UserRole
	// Issued is true when the guest token was minted for this request.
	Issued bool
}

// User builds an authenticated identity.
func User(userID uuid.UUID, role enums.UserRole) Identity {
	return Identity{Kind: enums.CartOwnerUser, Key: userID.String(), UserID: userID, Role: role}
}

// Guest builds an anonymous identity from a guest token.
func Guest(token string) Identity {
	return Identity{Kind: enums.CartOwnerGuest, Key: token}
}

func (i Identity) IsUser() bool {
	return i.Kind == enums.CartOwnerUser && i.UserID != uuid.Nil
}

func (i Identity) IsAdmin() bool {
	return i.IsUser() && i.Role == enums.UserRoleAdmin
}

// Resolver maps request credentials onto an Identity.
type Resolver struct {
	jwt      config.JWTConfig
	newToken func() string
}

func NewResolver(cfg config.JWTConfig) *Resolver {
	return &Resolver{jwt: cfg, newToken: uuid.NewString}
}

// Resolve prefers a bearer token, then the guest header, and otherwise mints a
// fresh guest token. A present but invalid credential is an error rather than
// a silent downgrade to guest.
func (r *Resolver) Resolve(req *http.Request) (Identity, error) {
	if raw := strings.TrimSpace(req.Header.Get("Authorization")); raw != "" {
		token := raw
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		if token == "" {
			return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
		}
		claims, err := auth.ParseAccessToken(r.jwt, token)
		if err != nil {
			return Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
		}
		return User(claims.UserID, claims.Role), nil
	}

	if guest := strings.TrimSpace(req.Header.Get(HeaderGuestToken)); guest != "" {
		parsed, err := uuid.Parse(guest)
		if err != nil {
			return Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "guest token must be a uuid")
		}
		return Guest(parsed.String()), nil
	}

	id := Guest(r.newToken())
	id.Issued = true
	return id, nil
}

type contextKey struct{}

// WithIdentity stores the identity on the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity set by the identity middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
