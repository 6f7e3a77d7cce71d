package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	"github.com/angelmondragon/shopflow-backend/pkg/pagination"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	conn := dbtest.Open(t)
	product := dbtest.MustCreateProduct(t, conn)
	order := seedOrder(t, conn, uuid.New(), product, 2)

	found, err := NewRepository(conn).FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, product.Name, found.Items[0].ProductSnapshot.Name)
	assert.Equal(t, "Ada", found.ShippingAddress.FullName)
	assert.Equal(t, enums.OrderStatusPending, found.Status)

	_, err = NewRepository(conn).FindByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryRejectsDuplicateOrderNumber(t *testing.T) {
	conn := dbtest.Open(t)
	product := dbtest.MustCreateProduct(t, conn)
	first := seedOrder(t, conn, uuid.New(), product, 1)

	dup := *first
	dup.ID = uuid.Nil
	dup.Items = nil
	err := NewRepository(conn).Create(context.Background(), &dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order_number")
}

func TestRepositoryListByUserPaginates(t *testing.T) {
	conn := dbtest.Open(t)
	product := dbtest.MustCreateProduct(t, conn)
	userID := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedOrder(t, conn, userID, product, 1, createdAt(base.Add(time.Duration(i)*time.Hour)))
	}
	seedOrder(t, conn, uuid.New(), product, 1)
	repo := NewRepository(conn)
	ctx := context.Background()

	rows, err := repo.ListByUser(ctx, userID, nil, pagination.LimitWithBuffer(2))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))

	cursor := &pagination.Cursor{CreatedAt: rows[1].CreatedAt, ID: rows[1].ID}
	rest, err := repo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(2))
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, rows[2].ID, rest[0].ID)
}

func TestRepositoryUpdateGuarded(t *testing.T) {
	conn := dbtest.Open(t)
	product := dbtest.MustCreateProduct(t, conn)
	order := seedOrder(t, conn, uuid.New(), product, 1)
	repo := NewRepository(conn)
	ctx := context.Background()

	err := repo.UpdateGuarded(ctx, order.ID, Guard{Status: enums.OrderStatusShipped}, map[string]any{"status": enums.OrderStatusDelivered})
	assert.True(t, errors.Is(err, ErrStaleOrder))

	require.NoError(t, repo.UpdateGuarded(ctx, order.ID, Guard{Status: enums.OrderStatusPending, PaymentStatus: enums.PaymentStatusPending},
		map[string]any{"status": enums.OrderStatusProcessing}))
	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, found.Status)
}
