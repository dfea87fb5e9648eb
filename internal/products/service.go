package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/internal/refs"
	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes product management plus the availability state machine.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, ref string, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, ref string) error
	DeleteBulk(ctx context.Context, productRefs []string) (*BulkDeleteReport, error)
	Get(ctx context.Context, ref string) (*ProductDTO, error)
	List(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	Enqueue(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	Dequeue(ctx context.Context, productID uuid.UUID) (bool, error)
	MarkOrdered(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) error
}

type stagedRemover interface {
	RemoveStaged(ctx context.Context, productID uuid.UUID) error
}

type changeNotifier interface {
	Invalidate(ctx context.Context, kind enums.RecordKind)
}

type service struct {
	repo     *Repository
	tx       txRunner
	alloc    *refs.Allocator
	resolver *refs.Resolver
	staged   stagedRemover
	changes  changeNotifier
	logg     *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, alloc *refs.Allocator, resolver *refs.Resolver, staged stagedRemover, changes changeNotifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if alloc == nil {
		return nil, fmt.Errorf("display id allocator required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("ref resolver required")
	}
	if staged == nil {
		return nil, fmt.Errorf("staged queue remover required")
	}
	if changes == nil {
		return nil, fmt.Errorf("change notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		alloc:    alloc,
		resolver: resolver,
		staged:   staged,
		changes:  changes,
		logg:     logg,
	}, nil
}

// Create inserts a product, allocating its P-prefixed display id in the
// same transaction as the row itself.
func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.CurrentStock < 0 || input.ReorderLevel < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock values must be non-negative")
	}
	defaultQty := input.DefaultQty
	if defaultQty == 0 {
		defaultQty = 1
	}
	if defaultQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default_qty must be positive")
	}
	unit := input.Unit
	if unit == "" {
		unit = enums.ProductUnitPcs
	}
	if !unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product unit")
	}

	var vendorID *uuid.UUID
	if input.VendorRef != nil && strings.TrimSpace(*input.VendorRef) != "" {
		vendor, err := s.resolver.ResolveVendor(ctx, strings.TrimSpace(*input.VendorRef))
		if err != nil {
			return nil, err
		}
		vendorID = &vendor.ID
	}

	var createdID uuid.UUID
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		displayID, err := s.alloc.WithTx(tx).NextProductDisplayID(ctx)
		if err != nil {
			return err
		}
		product := &models.Product{
			DisplayID:         &displayID,
			Name:              name,
			Brand:             input.Brand,
			Category:          input.Category,
			Unit:              unit,
			CurrentStock:      input.CurrentStock,
			ReorderLevel:      input.ReorderLevel,
			DefaultQty:        defaultQty,
			POStatus:          enums.AvailabilityStatusAvailable,
			IncludeInCreatePO: true,
			VendorID:          vendorID,
		}
		created, err := s.repo.WithTx(tx).CreateProduct(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		createdID = created.ID
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	s.changes.Invalidate(ctx, enums.RecordKindProducts)

	product, err := s.repo.FindByID(ctx, createdID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product), nil
}

// Update mutates the catalog fields of a product. Availability state is not
// touched here; that belongs to the queue and generator paths.
func (s *service) Update(ctx context.Context, ref string, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.resolver.ResolveProduct(ctx, ref)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
		}
		product.Name = name
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.Unit != nil {
		if !input.Unit.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product unit")
		}
		product.Unit = *input.Unit
	}
	if input.CurrentStock != nil {
		if *input.CurrentStock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock values must be non-negative")
		}
		product.CurrentStock = *input.CurrentStock
	}
	if input.ReorderLevel != nil {
		if *input.ReorderLevel < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock values must be non-negative")
		}
		product.ReorderLevel = *input.ReorderLevel
	}
	if input.DefaultQty != nil {
		if *input.DefaultQty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "default_qty must be positive")
		}
		product.DefaultQty = *input.DefaultQty
	}
	if input.VendorRef != nil {
		trimmed := strings.TrimSpace(*input.VendorRef)
		if trimmed == "" {
			product.VendorID = nil
		} else {
			vendor, err := s.resolver.ResolveVendor(ctx, trimmed)
			if err != nil {
				return nil, err
			}
			product.VendorID = &vendor.ID
		}
	}
	product.Vendor = nil

	if _, err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}

	s.changes.Invalidate(ctx, enums.RecordKindProducts)

	updated, err := s.repo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(updated), nil
}

// Delete removes a product. Any staged queue entry for it goes too; a
// failure there is only logged since the reconciler drops orphans anyway.
func (s *service) Delete(ctx context.Context, ref string) error {
	product, err := s.resolver.ResolveProduct(ctx, ref)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteProduct(ctx, product.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}

	if err := s.staged.RemoveStaged(ctx, product.ID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "product_id", product.ID.String()), "failed to drop staged queue entry for deleted product")
	}

	s.changes.Invalidate(ctx, enums.RecordKindProducts)
	return nil
}

// DeleteBulk deletes each resolvable reference and reports the ones that
// were not found. Deletions already performed stay deleted when a later
// reference fails to resolve.
func (s *service) DeleteBulk(ctx context.Context, productRefs []string) (*BulkDeleteReport, error) {
	if len(productRefs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no product references given")
	}

	report := &BulkDeleteReport{}
	for _, ref := range productRefs {
		err := s.Delete(ctx, ref)
		if err != nil {
			if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
				report.Missing = append(report.Missing, ref)
				continue
			}
			return report, err
		}
		report.Deleted++
	}
	return report, nil
}

// Get returns one product by uuid or display id.
func (s *service) Get(ctx context.Context, ref string) (*ProductDTO, error) {
	product, err := s.resolver.ResolveProduct(ctx, ref)
	if err != nil {
		return nil, err
	}
	loaded, err := s.repo.FindByID(ctx, product.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(loaded), nil
}

// List pages through products.
func (s *service) List(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	query := productListQuery{
		Pagination: input.Pagination,
		Filters:    input.Filters,
	}
	if input.Filters.VendorRef != nil && strings.TrimSpace(*input.Filters.VendorRef) != "" {
		vendor, err := s.resolver.ResolveVendor(ctx, strings.TrimSpace(*input.Filters.VendorRef))
		if err != nil {
			return nil, err
		}
		query.VendorID = &vendor.ID
	}
	result, err := s.repo.ListSummaries(ctx, query)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}
