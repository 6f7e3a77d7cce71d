package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopflow-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/shopflow-backend/internal/checkout"
	"github.com/angelmondragon/shopflow-backend/internal/identity"
	"github.com/angelmondragon/shopflow-backend/internal/notifications"
	"github.com/angelmondragon/shopflow-backend/internal/orders"
	"github.com/angelmondragon/shopflow-backend/pkg/auth"
	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
	"github.com/angelmondragon/shopflow-backend/pkg/redis"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type emptyCart struct{ cart.Service }

func (emptyCart) GetCart(ctx context.Context, owner cart.Owner) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), OwnerKind: owner.Kind, OwnerKey: owner.Key}, nil
}

type unusedCheckout struct{ checkoutsvc.Service }

type unusedOrders struct{ orders.Service }

type unusedNotifications struct{ notifications.Service }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: "http://localhost:3000"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "shopflow", ExpirationMinutes: 5},
		RateLimit: config.RateLimitConfig{
			CartWindow: time.Minute,
			CartLimit:  100,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	cfg := testConfig()
	router := NewRouter(
		cfg,
		logger.New(logger.Options{ServiceName: "router-test"}),
		okPinger{},
		redis.NewFromRaw(raw),
		prometheus.NewRegistry(),
		emptyCart{},
		unusedCheckout{},
		unusedOrders{},
		unusedNotifications{},
	)
	return router, cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now().UTC(), auth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, do(router, httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusOK, do(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)
	assert.Equal(t, http.StatusOK, do(router, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestGuestCartIssuesToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get(identity.HeaderGuestToken)
	_, err := uuid.Parse(token)
	assert.NoError(t, err)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAccountRoutesRejectGuests(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/api/v1/orders", "/api/v1/notifications"} {
		rec := do(router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/merge", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusUnauthorized, do(router, req).Code)
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	router, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleCustomer))

	assert.Equal(t, http.StatusBadRequest, do(router, req).Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router, cfg := newTestRouter(t)
	path := "/api/admin/v1/orders/" + uuid.NewString() + "/status"

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"status":"shipped"}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleCustomer))
	req.Header.Set("Idempotency-Key", "admin-1")

	assert.Equal(t, http.StatusForbidden, do(router, req).Code)
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)
	assert.Equal(t, http.StatusNotFound, do(router, httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil)).Code)
}
