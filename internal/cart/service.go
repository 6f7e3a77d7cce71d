package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopflow-backend/pkg/db/models"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopflow-backend/pkg/errors"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
)

const (
	defaultGuestTTL   = 7 * 24 * time.Hour
	defaultMaxRetries = 3
)

// Owner identifies whose cart an operation targets.
type Owner struct {
	Kind enums.CartOwnerKind
	Key  string
}

func UserOwner(userID uuid.UUID) Owner {
	return Owner{Kind: enums.CartOwnerUser, Key: userID.String()}
}

func GuestOwner(token string) Owner {
	return Owner{Kind: enums.CartOwnerGuest, Key: token}
}

func (o Owner) validate() error {
	if !o.Kind.IsValid() || o.Key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	return nil
}

// ItemInput addresses a single (product, variant) line.
type ItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// MergeInput carries either a guest token whose cart is folded in, explicit
// lines, or both.
type MergeInput struct {
	GuestToken string
	Items      []ItemInput
}

// SkippedLine reports a guest line that could not be merged.
type SkippedLine struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Reason    pkgerrors.Code
}

// MergeResult is the outcome of a best-effort merge.
type MergeResult struct {
	Cart    *models.Cart
	Merged  int
	Skipped []SkippedLine
}

// Service exposes cart operations for users and guests.
type Service interface {
	GetCart(ctx context.Context, owner Owner) (*models.Cart, error)
	AddItem(ctx context.Context, owner Owner, input ItemInput) (*models.Cart, error)
	UpdateItem(ctx context.Context, owner Owner, input ItemInput) (*models.Cart, error)
	RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID, variantID *uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, owner Owner) (*models.Cart, error)
	MergeGuestCart(ctx context.Context, userID uuid.UUID, input MergeInput) (*MergeResult, error)
}

// Options tunes the service; zero values fall back to defaults.
type Options struct {
	GuestTTL   time.Duration
	MaxRetries int
	Metrics    conflictRecorder
	Logger     *logger.Logger
}

type service struct {
	repo       CartRepository
	products   productLoader
	tx         txRunner
	guestTTL   time.Duration
	maxRetries int
	metrics    conflictRecorder
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires the cart service.
func NewService(repo CartRepository, products productLoader, tx txRunner, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repo required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	svc := &service{
		repo:       repo,
		products:   products,
		tx:         tx,
		guestTTL:   opts.GuestTTL,
		maxRetries: opts.MaxRetries,
		metrics:    opts.Metrics,
		logg:       opts.Logger,
		now:        time.Now,
	}
	if svc.guestTTL <= 0 {
		svc.guestTTL = defaultGuestTTL
	}
	if svc.maxRetries <= 0 {
		svc.maxRetries = defaultMaxRetries
	}
	return svc, nil
}

func (s *service) GetCart(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	record, err := s.ensureCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(record.Items) == 0 {
		return record, nil
	}
	catalog, err := s.products.FindProductsByIDs(ctx, ProductIDs(record))
	if err != nil {
		return nil, pkgerrors.FromStorage(err, pkgerrors.KindProduct, "load cart products")
	}
	FilterUnavailable(record, catalog)
	return record, nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, input ItemInput) (*models.Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, "add_item", owner, func(record *models.Cart, _ *gorm.DB) error {
		return AddItem(record, product, input.VariantID, input.Quantity, s.now())
	})
}

func (s *service) UpdateItem(ctx context.Context, owner Owner, input ItemInput) (*models.Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	var product *models.Product
	if input.Quantity > 0 {
		loaded, err := s.loadProduct(ctx, input.ProductID)
		if err != nil {
			return nil, err
		}
		product = loaded
	}
	return s.mutate(ctx, "update_item", owner, func(record *models.Cart, _ *gorm.DB) error {
		return UpdateQuantity(record, input.ProductID, input.VariantID, input.Quantity, product)
	})
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID, variantID *uuid.UUID) (*models.Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "remove_item", owner, func(record *models.Cart, _ *gorm.DB) error {
		RemoveItem(record, productID, variantID)
		return nil
	})
}

func (s *service) Clear(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "clear", owner, func(record *models.Cart, _ *gorm.DB) error {
		Clear(record)
		return nil
	})
}

func (s *service) MergeGuestCart(ctx context.Context, userID uuid.UUID, input MergeInput) (*MergeResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "merge requires an authenticated user")
	}

	lines := append([]ItemInput(nil), input.Items...)
	var guest *models.Cart
	if input.GuestToken != "" {
		loaded, err := s.repo.FindByOwner(ctx, enums.CartOwnerGuest, input.GuestToken)
		switch {
		case err == nil:
			guest = loaded
			for _, item := range loaded.Items {
				lines = append(lines, ItemInput{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity})
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, pkgerrors.FromStorage(err, pkgerrors.KindCart, "load guest cart")
		}
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	catalog, err := s.products.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.FromStorage(err, pkgerrors.KindProduct, "load merge products")
	}

	result := &MergeResult{}
	record, err := s.mutate(ctx, "merge", UserOwner(userID), func(record *models.Cart, tx *gorm.DB) error {
		// a retry replays every line against the freshly loaded cart
		result.Merged = 0
		result.Skipped = []SkippedLine{}
		now := s.now()
		for _, line := range lines {
			if err := mergeLine(record, catalog[line.ProductID], line, now); err != nil {
				var typed *pkgerrors.Error
				if !errors.As(err, &typed) {
					return err
				}
				result.Skipped = append(result.Skipped, SkippedLine{
					ProductID: line.ProductID,
					VariantID: line.VariantID,
					Reason:    typed.Code(),
				})
				continue
			}
			result.Merged++
		}
		if guest != nil {
			return s.repo.WithTx(tx).Delete(ctx, guest.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Cart = record

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": userID.String(),
			"merged":  result.Merged,
			"skipped": len(result.Skipped),
		})
		s.logg.Info(logCtx, "guest cart merged")
	}
	return result, nil
}

func mergeLine(record *models.Cart, product *models.Product, line ItemInput, now time.Time) error {
	if line.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if product == nil {
		return pkgerrors.NotFound(pkgerrors.KindProduct, line.ProductID, "product not found")
	}
	return AddItem(record, product, line.VariantID, line.Quantity, now)
}

// mutate runs one read-modify-write cycle and retries it when the
// version-checked save loses a race.
func (s *service) mutate(ctx context.Context, operation string, owner Owner, fn func(record *models.Cart, tx *gorm.DB) error) (*models.Cart, error) {
	if _, err := s.ensureCart(ctx, owner); err != nil {
		return nil, err
	}

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		var saved *models.Cart
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			record, err := repo.FindByOwner(ctx, owner.Kind, owner.Key)
			if err != nil {
				return pkgerrors.FromStorage(err, pkgerrors.KindCart, "load cart")
			}
			if err := fn(record, tx); err != nil {
				return err
			}
			CalculateTotals(record)
			s.touchExpiry(record)
			if err := repo.SaveVersioned(ctx, record); err != nil {
				return err
			}
			saved = record
			return nil
		})
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, pkgerrors.FromStorage(err, pkgerrors.KindCart, "save cart")
		}
		if s.metrics != nil {
			s.metrics.IncCartConflict(operation)
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"operation": operation,
				"attempt":   attempt + 1,
			})
			s.logg.Warn(logCtx, "cart version conflict")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently, retry the request")
}

// ensureCart creates the owner's cart on first access. It runs outside any
// transaction so a lost creation race does not poison a postgres tx.
func (s *service) ensureCart(ctx context.Context, owner Owner) (*models.Cart, error) {
	record, err := s.repo.FindByOwner(ctx, owner.Kind, owner.Key)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.FromStorage(err, pkgerrors.KindCart, "load cart")
	}

	record = &models.Cart{OwnerKind: owner.Kind, OwnerKey: owner.Key, Items: []models.CartItem{}}
	s.touchExpiry(record)
	if err := s.repo.Create(ctx, record); err != nil {
		if !errors.Is(err, ErrCartExists) {
			return nil, pkgerrors.FromStorage(err, pkgerrors.KindCart, "create cart")
		}
		existing, findErr := s.repo.FindByOwner(ctx, owner.Kind, owner.Key)
		if findErr != nil {
			return nil, pkgerrors.FromStorage(findErr, pkgerrors.KindCart, "load cart")
		}
		return existing, nil
	}
	record.Items = []models.CartItem{}
	return record, nil
}

func (s *service) touchExpiry(record *models.Cart) {
	if record.OwnerKind != enums.CartOwnerGuest {
		record.ExpiresAt = nil
		return
	}
	expires := s.now().UTC().Add(s.guestTTL)
	record.ExpiresAt = &expires
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound(pkgerrors.KindProduct, id, "product not found")
		}
		return nil, pkgerrors.FromStorage(err, pkgerrors.KindProduct, "load product")
	}
	return product, nil
}
