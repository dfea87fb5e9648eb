package purchaseorders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/internal/queue"
	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
)

type generationLine struct {
	productID   uuid.UUID
	productName string
	quantity    int
}

type vendorGroup struct {
	vendorID   uuid.UUID
	vendorName string
	lines      []generationLine
}

// Generate turns staged queue entries into one purchase order per distinct
// vendor. Groups keep the order products were staged in, and a multi-vendor
// call numbers its orders as a contiguous block. Each group commits in its
// own transaction; when a later group fails the earlier orders stay.
func (s *service) Generate(ctx context.Context, actor Actor, selectedProductRefs []string) ([]PurchaseOrderDTO, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor required")
	}

	entries, err := s.staging.Entries(ctx)
	if err != nil {
		return nil, err
	}
	entries, err = s.filterSelection(ctx, entries, selectedProductRefs)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "queue is empty")
	}

	groups, err := s.groupByVendor(ctx, entries)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no orderable items in queue")
	}

	maxSuffix, err := s.repo.MaxNumberSuffix(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan purchase order numbers")
	}

	created := make([]PurchaseOrderDTO, 0, len(groups))
	for i, group := range groups {
		number := FormatNumber(maxSuffix + int64(i) + 1)
		orderID, err := s.createOrder(ctx, actor, number, group)
		if err != nil {
			return nil, err
		}

		ids := make([]uuid.UUID, 0, len(group.lines))
		for _, line := range group.lines {
			ids = append(ids, line.productID)
		}
		if err := s.staging.RemoveProcessed(ctx, ids); err != nil {
			// The order is committed; the reconciler drops the stale entries.
			s.logg.Warn(s.logg.WithField(ctx, "po_number", number), "failed to remove processed queue entries")
		}

		loaded, err := s.repo.FindByID(ctx, orderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
		}
		created = append(created, *fromModel(loaded))
	}

	s.changes.Invalidate(ctx, enums.RecordKindProducts)
	s.changes.Invalidate(ctx, enums.RecordKindPurchaseOrders)
	return created, nil
}

// filterSelection narrows the staged entries to the requested products. An
// empty selection means the whole queue.
func (s *service) filterSelection(ctx context.Context, entries []queue.Entry, selectedProductRefs []string) ([]queue.Entry, error) {
	if len(selectedProductRefs) == 0 {
		return entries, nil
	}
	selected := make(map[uuid.UUID]struct{}, len(selectedProductRefs))
	for _, ref := range selectedProductRefs {
		prod, err := s.resolver.ResolveProduct(ctx, ref)
		if err != nil {
			return nil, err
		}
		selected[prod.ID] = struct{}{}
	}
	filtered := entries[:0:0]
	for _, entry := range entries {
		if _, ok := selected[entry.ProductID]; ok {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// groupByVendor buckets entries by vendor in encounter order. Entries whose
// product is missing or carries no vendor are dropped with a warning.
func (s *service) groupByVendor(ctx context.Context, entries []queue.Entry) ([]*vendorGroup, error) {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ProductID)
	}
	rows, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staged products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	var groups []*vendorGroup
	groupByVendorID := make(map[uuid.UUID]*vendorGroup)
	for _, entry := range entries {
		prod, ok := byID[entry.ProductID]
		if !ok {
			s.logg.Warn(s.logg.WithField(ctx, "product_id", entry.ProductID.String()), "staged product no longer exists, dropped from generation")
			continue
		}
		if prod.VendorID == nil || prod.Vendor == nil {
			s.logg.Warn(s.logg.WithField(ctx, "product_id", prod.ID.String()), "staged product has no vendor, dropped from generation")
			continue
		}
		group, ok := groupByVendorID[*prod.VendorID]
		if !ok {
			group = &vendorGroup{vendorID: *prod.VendorID, vendorName: prod.Vendor.Name}
			groupByVendorID[*prod.VendorID] = group
			groups = append(groups, group)
		}
		group.lines = append(group.lines, generationLine{
			productID:   prod.ID,
			productName: prod.Name,
			quantity:    entry.Quantity,
		})
	}
	return groups, nil
}

// createOrder commits one vendor group: header, item rows and the queued ->
// po_created transition, all in one transaction.
func (s *service) createOrder(ctx context.Context, actor Actor, number string, group *vendorGroup) (uuid.UUID, error) {
	vendorID := group.vendorID
	order := &models.PurchaseOrder{
		Number:        number,
		VendorID:      &vendorID,
		VendorName:    group.vendorName,
		Status:        enums.POStatusCreated,
		CreatedBy:     actor.ID,
		CreatedByName: actor.Name,
		TotalItems:    len(group.lines),
	}
	for i, line := range group.lines {
		productID := line.productID
		order.Items = append(order.Items, models.PurchaseOrderItem{
			ProductID:   &productID,
			ProductName: line.productName,
			Quantity:    line.quantity,
			Position:    i,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(group.lines))
		for _, line := range group.lines {
			ids = append(ids, line.productID)
		}
		return s.products.WithTx(tx).MarkOrdered(ctx, ids)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return uuid.Nil, err
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
	}
	return order.ID, nil
}
