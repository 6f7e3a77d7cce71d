package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopflow-backend/internal/notifications"
	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
)

type stubNotifications struct {
	params   notifications.ListParams
	result   *notifications.ListResult
	markedID uuid.UUID
	updated  int64
	err      error
}

func (s *stubNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.params = params
	return s.result, s.err
}

func (s *stubNotifications) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	s.markedID = notificationID
	return s.err
}

func (s *stubNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.updated, s.err
}

func TestListNotificationsUnreadOnly(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubNotifications{result: &notifications.ListResult{
		Items: []models.Notification{{
			ID:      uuid.New(),
			UserID:  userID,
			OrderID: &orderID,
			Type:    enums.NotificationTypeOrderConfirmed,
			Title:   "Order confirmed",
			Message: "We received your order",
		}},
		Cursor: "cursor-2",
	}}

	rec := serve(ListNotifications(svc, testLogger()), newRequest(http.MethodGet, "/api/v1/notifications?unread_only=true&limit=10", "", asUser(userID, enums.UserRoleCustomer)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.params.UnreadOnly)
	assert.Equal(t, 10, svc.params.Limit)
	assert.Equal(t, userID, svc.params.UserID)

	var page struct {
		Items      []notificationResponse `json:"items"`
		NextCursor string                 `json:"next_cursor"`
	}
	decodeData(t, rec, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, orderID, *page.Items[0].OrderID)
	assert.Equal(t, "cursor-2", page.NextCursor)
}

func TestMarkNotificationRead(t *testing.T) {
	notificationID := uuid.New()
	svc := &stubNotifications{}

	rec := serve(MarkNotificationRead(svc, testLogger()), newRequest(http.MethodPost, "/api/v1/notifications/x/read", "",
		asUser(uuid.New(), enums.UserRoleCustomer), withURLParam("notificationId", notificationID.String())))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notificationID, svc.markedID)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	svc := &stubNotifications{updated: 4}

	rec := serve(MarkAllNotificationsRead(svc, testLogger()), newRequest(http.MethodPost, "/api/v1/notifications/read-all", "", asUser(uuid.New(), enums.UserRoleCustomer)))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int64
	decodeData(t, rec, &body)
	assert.Equal(t, int64(4), body["updated"])
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	healthy := HealthReady("test", testLogger(), map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{}})
	rec := serve(healthy, newRequest(http.MethodGet, "/health/ready", ""))
	assert.Equal(t, http.StatusOK, rec.Code)

	degraded := HealthReady("test", testLogger(), map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{err: errors.New("down")}})
	rec = serve(degraded, newRequest(http.MethodGet, "/health/ready", ""))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DEPENDENCY_ERROR", decodeErrorCode(t, rec))
}

func TestHealthLive(t *testing.T) {
	rec := serve(HealthLive("test"), newRequest(http.MethodGet, "/health/live", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Shopflow-Env"))
}
