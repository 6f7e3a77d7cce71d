// Package dbtest opens throwaway sqlite databases for repository and service tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/migrate"
)

// Open returns an isolated in-memory database with every table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:shopflow_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migrate.ApplySQLite(context.Background(), conn); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// ProductOption customizes fixtures created by MustCreateProduct.
type ProductOption func(*models.Product)

func WithPrice(price string) ProductOption {
	return func(p *models.Product) { p.Price = decimal.RequireFromString(price) }
}

func WithStock(qty int) ProductOption {
	return func(p *models.Product) { p.StockQuantity = qty }
}

func Inactive() ProductOption {
	return func(p *models.Product) { p.IsActive = false }
}

// WithVariant attaches a variant; its id is generated when zero.
func WithVariant(v models.ProductVariant) ProductOption {
	return func(p *models.Product) {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		if v.SKU == "" {
			v.SKU = "SKU-" + v.ID.String()[:8]
		}
		p.Variants = append(p.Variants, v)
	}
}

// MustCreateProduct inserts an active product priced at 10 with 100 units in stock.
func MustCreateProduct(t testing.TB, conn *gorm.DB, opts ...ProductOption) *models.Product {
	t.Helper()
	category := &models.Category{Name: "Gear", Slug: "gear-" + uuid.NewString()[:8]}
	if err := conn.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	product := &models.Product{
		ID:            uuid.New(),
		CategoryID:    &category.ID,
		Name:          "Trail Bottle",
		Slug:          "trail-bottle-" + uuid.NewString()[:8],
		Description:   "Insulated steel bottle",
		Images:        pq.StringArray{"https://cdn.example.com/bottle.png"},
		Price:         decimal.NewFromInt(10),
		StockQuantity: 100,
		IsActive:      true,
	}
	for _, opt := range opts {
		opt(product)
	}
	active := product.IsActive
	if err := conn.Omit("Category").Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	if !active {
		// the column default would otherwise win over a false zero value
		if err := conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate product: %v", err)
		}
		product.IsActive = false
	}
	product.Category = category
	return product
}

// StockOf reads the current product stock.
func StockOf(t testing.TB, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.Select("stock_quantity").Where("id = ?", productID).First(&product).Error; err != nil {
		t.Fatalf("load product stock: %v", err)
	}
	return product.StockQuantity
}

// VariantStockOf reads the current variant stock.
func VariantStockOf(t testing.TB, conn *gorm.DB, variantID uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	if err := conn.Select("stock_quantity").Where("id = ?", variantID).First(&variant).Error; err != nil {
		t.Fatalf("load variant stock: %v", err)
	}
	return variant.StockQuantity
}

// Count returns the number of rows in table.
func Count(t testing.TB, conn *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	if err := conn.Table(table).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
