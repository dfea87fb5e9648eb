package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
)

// The availability state machine: available → queued → po_created, with
// queued → available as the only reverse edge. Transitions attempted from
// the wrong source state do nothing and return false, so duplicate UI
// triggers stay retry-safe. include_in_create_po is recomputed on every
// transition and is true exactly for available products.

// Enqueue moves an available product to queued and records the requested
// quantity. A product already queued or ordered is left untouched.
func (s *service) Enqueue(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	changed, err := s.repo.UpdateAvailability(ctx, productID,
		enums.AvailabilityStatusAvailable, enums.AvailabilityStatusQueued,
		map[string]any{"default_qty": qty})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark product queued")
	}
	if changed {
		s.changes.Invalidate(ctx, enums.RecordKindProducts)
	}
	return changed, nil
}

// Dequeue returns a queued product to available.
func (s *service) Dequeue(ctx context.Context, productID uuid.UUID) (bool, error) {
	changed, err := s.repo.UpdateAvailability(ctx, productID,
		enums.AvailabilityStatusQueued, enums.AvailabilityStatusAvailable, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark product available")
	}
	if changed {
		s.changes.Invalidate(ctx, enums.RecordKindProducts)
	}
	return changed, nil
}

// MarkOrdered bulk-transitions queued products to po_created inside the
// caller's transaction. Ordered products stay out of selection views until
// an operator re-adds them; there is no automatic way back.
func (s *service) MarkOrdered(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	if err := s.repo.WithTx(tx).MarkOrdered(ctx, productIDs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark products ordered")
	}
	return nil
}
