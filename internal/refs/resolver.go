package refs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
)

// Resolver loads records from client-supplied references. A reference is
// either the row's uuid or its display handle (V001, P001, PO-0001), tried
// in that order.
type Resolver struct {
	db *gorm.DB
}

// NewResolver builds a resolver bound to the provided DB.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	if tx == nil {
		return r
	}
	return &Resolver{db: tx}
}

// ResolveVendor returns the vendor a reference points at.
func (r *Resolver) ResolveVendor(ctx context.Context, ref string) (*models.Vendor, error) {
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor reference required")
	}
	var vendor models.Vendor
	err := r.byRef(ctx, ref, "display_id", &vendor)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return &vendor, nil
}

// ResolveProduct returns the product a reference points at.
func (r *Resolver) ResolveProduct(ctx context.Context, ref string) (*models.Product, error) {
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product reference required")
	}
	var product models.Product
	err := r.byRef(ctx, ref, "display_id", &product)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// ResolvePurchaseOrder returns the purchase order a reference points at.
// The display handle for orders is the PO number.
func (r *Resolver) ResolvePurchaseOrder(ctx context.Context, ref string) (*models.PurchaseOrder, error) {
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order reference required")
	}
	var order models.PurchaseOrder
	err := r.byRef(ctx, ref, "number", &order)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
	}
	return &order, nil
}

func (r *Resolver) byRef(ctx context.Context, ref, handleColumn string, out any) error {
	if id, err := uuid.Parse(ref); err == nil {
		return r.db.WithContext(ctx).Where("id = ?", id).First(out).Error
	}
	return r.db.WithContext(ctx).Where(handleColumn+" = ?", ref).First(out).Error
}
