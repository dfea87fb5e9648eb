package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/internal/refs"
	"github.com/martincervantes/procurehub-backend/pkg/db"
	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type changeNotifier interface {
	Invalidate(ctx context.Context, kind enums.RecordKind)
}

// Service exposes vendor management.
type Service interface {
	Create(ctx context.Context, input CreateVendorInput) (*VendorDTO, error)
	CreateBatch(ctx context.Context, inputs []CreateVendorInput) (*ImportReport, error)
	Update(ctx context.Context, ref string, input UpdateVendorInput) (*VendorDTO, error)
	Delete(ctx context.Context, ref string) error
	DeleteBulk(ctx context.Context, vendorRefs []string) (*BulkDeleteReport, error)
	Get(ctx context.Context, ref string) (*VendorDTO, error)
	List(ctx context.Context, input ListVendorsInput) (*VendorListResult, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	alloc    *refs.Allocator
	resolver *refs.Resolver
	changes  changeNotifier
	logg     *logger.Logger
}

// NewService constructs a vendor service instance.
func NewService(repo *Repository, tx txRunner, alloc *refs.Allocator, resolver *refs.Resolver, changes changeNotifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendor repository required")
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
		changes:  changes,
		logg:     logg,
	}, nil
}

// Create inserts a vendor, allocating its V-prefixed display id in the same
// transaction as the row. A normalized-name collision fails with a conflict;
// the unique index backstops the pre-check under concurrent creates.
func (s *service) Create(ctx context.Context, input CreateVendorInput) (*VendorDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}

	if _, err := s.repo.FindByNormalizedName(ctx, name); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor name already exists").
			WithDetails(map[string]any{"name": name})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor name")
	}

	var created *models.Vendor
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		displayID, err := s.alloc.WithTx(tx).NextVendorDisplayID(ctx)
		if err != nil {
			return err
		}
		vendor := &models.Vendor{
			DisplayID:    displayID,
			Name:         name,
			GSTNumber:    input.GSTNumber,
			Address:      input.Address,
			Phone:        input.Phone,
			ContactName:  input.ContactName,
			ContactEmail: input.ContactEmail,
		}
		row, err := s.repo.WithTx(tx).Create(ctx, vendor)
		if err != nil {
			if db.IsUniqueViolation(err, "idx_vendors_name_ci") {
				return pkgerrors.New(pkgerrors.CodeConflict, "vendor name already exists").
					WithDetails(map[string]any{"name": name})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert vendor")
		}
		created = row
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}

	s.changes.Invalidate(ctx, enums.RecordKindVendors)
	return FromModel(created), nil
}

// CreateBatch imports vendors, skipping name-duplicates instead of aborting.
// Duplicates are detected against the store and within the batch itself.
// Each surviving row is created in its own transaction, so rows committed
// before a store failure stay committed.
func (s *service) CreateBatch(ctx context.Context, inputs []CreateVendorInput) (*ImportReport, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no vendors given")
	}
	for _, input := range inputs {
		if strings.TrimSpace(input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
		}
	}

	existing, err := s.repo.ListNormalizedNames(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor names")
	}

	report := &ImportReport{}
	for _, input := range inputs {
		name := strings.TrimSpace(input.Name)
		normalized := NormalizeName(name)
		if _, dup := existing[normalized]; dup {
			report.Skipped++
			report.Duplicates = append(report.Duplicates, name)
			continue
		}

		input.Name = name
		if _, err := s.Create(ctx, input); err != nil {
			if pkgerrors.CodeOf(err) == pkgerrors.CodeConflict {
				report.Skipped++
				report.Duplicates = append(report.Duplicates, name)
				continue
			}
			return report, err
		}
		existing[normalized] = struct{}{}
		report.Added++
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"added":   report.Added,
		"skipped": report.Skipped,
	}), "vendor import complete")
	return report, nil
}

// Update mutates vendor fields. A rename re-checks the uniqueness rule
// against every other vendor.
func (s *service) Update(ctx context.Context, ref string, input UpdateVendorInput) (*VendorDTO, error) {
	vendor, err := s.resolver.ResolveVendor(ctx, ref)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
		}
		if other, err := s.repo.FindByNormalizedName(ctx, name); err == nil {
			if other.ID != vendor.ID {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor name already exists").
					WithDetails(map[string]any{"name": name})
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor name")
		}
		vendor.Name = name
	}
	if input.GSTNumber != nil {
		vendor.GSTNumber = input.GSTNumber
	}
	if input.Address != nil {
		vendor.Address = input.Address
	}
	if input.Phone != nil {
		vendor.Phone = input.Phone
	}
	if input.ContactName != nil {
		vendor.ContactName = input.ContactName
	}
	if input.ContactEmail != nil {
		vendor.ContactEmail = input.ContactEmail
	}

	if err := s.repo.Update(ctx, vendor); err != nil {
		if db.IsUniqueViolation(err, "idx_vendors_name_ci") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update vendor")
	}

	s.changes.Invalidate(ctx, enums.RecordKindVendors)
	return FromModel(vendor), nil
}

// Delete removes a vendor. Purchase orders keep their vendor-name snapshot;
// products referencing the vendor are detached by the schema.
func (s *service) Delete(ctx context.Context, ref string) error {
	vendor, err := s.resolver.ResolveVendor(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, vendor.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vendor")
	}
	s.changes.Invalidate(ctx, enums.RecordKindVendors)
	s.changes.Invalidate(ctx, enums.RecordKindProducts)
	return nil
}

// DeleteBulk deletes each resolvable reference and reports the ones that
// were not found.
func (s *service) DeleteBulk(ctx context.Context, vendorRefs []string) (*BulkDeleteReport, error) {
	if len(vendorRefs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no vendor references given")
	}
	report := &BulkDeleteReport{}
	for _, ref := range vendorRefs {
		if err := s.Delete(ctx, ref); err != nil {
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

// Get returns one vendor by uuid or display id.
func (s *service) Get(ctx context.Context, ref string) (*VendorDTO, error) {
	vendor, err := s.resolver.ResolveVendor(ctx, ref)
	if err != nil {
		return nil, err
	}
	return FromModel(vendor), nil
}

// List pages through vendors.
func (s *service) List(ctx context.Context, input ListVendorsInput) (*VendorListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, vendorListQuery{
		Pagination: input.Pagination,
		Query:      input.Query,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}

	dtos := make([]VendorDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return &VendorListResult{Vendors: dtos, NextCursor: nextCursor}, nil
}
