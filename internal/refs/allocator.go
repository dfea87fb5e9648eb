package refs

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
)

// Allocator hands out sequential display identifiers per record kind.
// Values come from the ref_sequences counter, which only moves forward,
// so a display id is never reissued even after the record it named is
// deleted.
type Allocator struct {
	db *gorm.DB
}

// NewAllocator builds an allocator bound to the provided DB.
func NewAllocator(db *gorm.DB) *Allocator {
	return &Allocator{db: db}
}

// WithTx returns an allocator bound to the given transaction so the counter
// advance commits or rolls back with the row that consumed it.
func (a *Allocator) WithTx(tx *gorm.DB) *Allocator {
	if tx == nil {
		return a
	}
	return &Allocator{db: tx}
}

// Next advances the counter for kind and returns the new value. The upsert
// makes the first allocation for a kind work without seeding.
func (a *Allocator) Next(ctx context.Context, kind enums.RecordKind) (int64, error) {
	if !kind.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid record kind")
	}
	var next int64
	err := a.db.WithContext(ctx).Raw(`
		INSERT INTO ref_sequences (kind, last_value, updated_at)
		VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT (kind) DO UPDATE
		SET last_value = ref_sequences.last_value + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING last_value
	`, kind.String()).Scan(&next).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance ref sequence")
	}
	return next, nil
}

// NextVendorDisplayID allocates the next V-prefixed vendor handle.
func (a *Allocator) NextVendorDisplayID(ctx context.Context) (string, error) {
	n, err := a.Next(ctx, enums.RecordKindVendors)
	if err != nil {
		return "", err
	}
	return FormatVendorDisplayID(n), nil
}

// NextProductDisplayID allocates the next P-prefixed product handle.
func (a *Allocator) NextProductDisplayID(ctx context.Context) (string, error) {
	n, err := a.Next(ctx, enums.RecordKindProducts)
	if err != nil {
		return "", err
	}
	return FormatProductDisplayID(n), nil
}

// FormatVendorDisplayID renders a vendor sequence value as V001, V002, ...
// Values past 999 keep growing digits rather than wrapping.
func FormatVendorDisplayID(n int64) string {
	return fmt.Sprintf("V%03d", n)
}

// FormatProductDisplayID renders a product sequence value as P001, P002, ...
func FormatProductDisplayID(n int64) string {
	return fmt.Sprintf("P%03d", n)
}
