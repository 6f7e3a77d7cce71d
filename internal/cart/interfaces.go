package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
)

// CartRepository defines the persistence surface required by the cart service
// and by checkout, which clears the cart inside its own transaction.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByOwner(ctx context.Context, kind enums.CartOwnerKind, key string) (*models.Cart, error)
	Create(ctx context.Context, record *models.Cart) error
	SaveVersioned(ctx context.Context, record *models.Cart) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExpiredGuestIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	DeleteExpiredGuests(ctx context.Context, now time.Time, limit int) (int64, error)
	DeleteIfExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type productLoader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type conflictRecorder interface {
	IncCartConflict(operation string)
}
