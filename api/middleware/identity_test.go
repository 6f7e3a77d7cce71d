package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopflow-backend/internal/identity"
	"github.com/angelmondragon/shopflow-backend/pkg/auth"
	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "shopflow", ExpirationMinutes: 5}

func bearerFor(t *testing.T, role enums.UserRole) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := auth.MintAccessToken(testJWT, time.Now().UTC(), auth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return "Bearer " + token, userID
}

func identityChain(final http.Handler, gates ...func(http.Handler) http.Handler) http.Handler {
	h := final
	for i := len(gates) - 1; i >= 0; i-- {
		h = gates[i](h)
	}
	return Identity(identity.NewResolver(testJWT), testLogger())(h)
}

func captureIdentity(out *identity.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*out, _ = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestIdentityIssuesGuestToken(t *testing.T) {
	var seen identity.Identity
	rec := httptest.NewRecorder()
	identityChain(captureIdentity(&seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, enums.CartOwnerGuest, seen.Kind)
	assert.True(t, seen.Issued)
	assert.Equal(t, seen.Key, rec.Header().Get(identity.HeaderGuestToken))
}

func TestIdentityKeepsPresentedGuestToken(t *testing.T) {
	token := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(identity.HeaderGuestToken, token)

	var seen identity.Identity
	rec := httptest.NewRecorder()
	identityChain(captureIdentity(&seen)).ServeHTTP(rec, req)

	assert.Equal(t, token, seen.Key)
	assert.False(t, seen.Issued)
	assert.Equal(t, token, rec.Header().Get(identity.HeaderGuestToken))
}

func TestIdentityRejectsMalformedGuestToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(identity.HeaderGuestToken, "not-a-uuid")

	var seen identity.Identity
	rec := httptest.NewRecorder()
	identityChain(captureIdentity(&seen)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, seen.Key)
}

func TestIdentityResolvesBearerUser(t *testing.T) {
	bearer, userID := bearerFor(t, enums.UserRoleCustomer)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", bearer)

	var seen identity.Identity
	rec := httptest.NewRecorder()
	identityChain(captureIdentity(&seen), RequireUser(testLogger())).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, seen.IsUser())
	assert.Equal(t, userID, seen.UserID)
	assert.Empty(t, rec.Header().Get(identity.HeaderGuestToken))
}

func TestIdentityRejectsInvalidBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer nope")

	var seen identity.Identity
	rec := httptest.NewRecorder()
	identityChain(captureIdentity(&seen)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireUserRejectsGuests(t *testing.T) {
	var seen identity.Identity
	rec := httptest.NewRecorder()
	identityChain(captureIdentity(&seen), RequireUser(testLogger())).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen.Key)
}

func TestRequireAdmin(t *testing.T) {
	customer, _ := bearerFor(t, enums.UserRoleCustomer)
	admin, _ := bearerFor(t, enums.UserRoleAdmin)

	cases := []struct {
		name   string
		bearer string
		want   int
	}{
		{name: "guest", want: http.StatusUnauthorized},
		{name: "customer", bearer: customer, want: http.StatusForbidden},
		{name: "admin", bearer: admin, want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/x/refund", nil)
			if tc.bearer != "" {
				req.Header.Set("Authorization", tc.bearer)
			}
			var seen identity.Identity
			rec := httptest.NewRecorder()
			identityChain(captureIdentity(&seen), RequireAdmin(testLogger())).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
