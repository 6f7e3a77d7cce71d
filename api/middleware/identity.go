package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/shopflow-backend/api/responses"
	"github.com/angelmondragon/shopflow-backend/internal/identity"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
)

type identityResolver interface {
	Resolve(r *http.Request) (identity.Identity, error)
}

// Identity resolves the caller (user or guest) and stores it on the context.
// Newly issued guest tokens are echoed in the X-Guest-Token response header.
func Identity(resolver identityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.Resolve(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if id.Kind == enums.CartOwnerGuest {
				w.Header().Set(identity.HeaderGuestToken, id.Key)
			}

			ctx := identity.WithIdentity(r.Context(), id)
			if logg != nil {
				ctx = logg.WithIdentity(ctx, id.Kind.String(), id.Key)
				if id.IsUser() {
					ctx = logg.WithUserID(ctx, id.UserID.String())
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects guests on routes that operate on a user's account.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := identity.FromContext(r.Context()); !ok || !id.IsUser() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates staff routes. Guests get 401, signed-in non-admins 403.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identity.FromContext(r.Context())
			switch {
			case !ok || !id.IsUser():
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
				return
			case !id.IsAdmin():
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identityScope(ctx context.Context) string {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return "anonymous"
	}
	return id.Kind.String() + ":" + id.Key
}
