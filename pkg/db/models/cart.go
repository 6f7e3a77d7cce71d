package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/enums"
)

// Cart is the single persisted shape for both user and guest carts.
type Cart struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OwnerKind   enums.CartOwnerKind `gorm:"column:owner_kind;not null"`
	OwnerKey    string              `gorm:"column:owner_key;not null"`
	TotalAmount decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	ItemCount   int                 `gorm:"column:item_count;not null;default:0"`
	Version     int64               `gorm:"column:version;not null;default:0"`
	ExpiresAt   *time.Time          `gorm:"column:expires_at"`
	Items       []CartItem          `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
