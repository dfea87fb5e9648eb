package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	product "github.com/martincervantes/procurehub-backend/internal/products"
	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

type entryStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	QueueKey() string
}

type productResolver interface {
	ResolveProduct(ctx context.Context, ref string) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type changeNotifier interface {
	Invalidate(ctx context.Context, kind enums.RecordKind)
}

// Service is the PO staging queue. Entries live in Redis under a fixed key;
// the durable po_status on each product is the source of truth, and the
// queue is reconciled against it on a schedule.
type Service interface {
	Add(ctx context.Context, productRef string, qty int) (bool, error)
	AddBatch(ctx context.Context, items []BatchItem) (*BatchReport, error)
	Remove(ctx context.Context, productRef string) error
	RemoveStaged(ctx context.Context, productID uuid.UUID) error
	RemoveProcessed(ctx context.Context, productIDs []uuid.UUID) error
	Clear(ctx context.Context) error
	Entries(ctx context.Context) ([]Entry, error)
	List(ctx context.Context) (*View, error)
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

type service struct {
	store    entryStore
	products *product.Repository
	resolver productResolver
	tx       txRunner
	changes  changeNotifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the queue service.
func NewService(store entryStore, products *product.Repository, resolver productResolver, tx txRunner, changes changeNotifier, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("queue store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("ref resolver required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if changes == nil {
		return nil, fmt.Errorf("change notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		store:    store,
		products: products,
		resolver: resolver,
		tx:       tx,
		changes:  changes,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Add stages one product. A non-positive quantity is rejected before any
// store call. Adding a product that is already staged (or already ordered)
// is a silent no-op so duplicate UI triggers stay safe; the return reports
// whether an entry was actually appended.
func (s *service) Add(ctx context.Context, productRef string, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	prod, err := s.resolver.ResolveProduct(ctx, productRef)
	if err != nil {
		return false, err
	}

	entries, err := s.loadEntries(ctx)
	if err != nil {
		return false, err
	}
	if hasEntry(entries, prod.ID) {
		return false, nil
	}

	changed, err := s.products.UpdateAvailability(ctx, prod.ID,
		enums.AvailabilityStatusAvailable, enums.AvailabilityStatusQueued,
		map[string]any{"default_qty": qty})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark product queued")
	}
	if !changed {
		// Product was not available (already queued elsewhere or ordered).
		return false, nil
	}

	entries = append(entries, Entry{ProductID: prod.ID, Quantity: qty, AddedAt: s.now().UTC()})
	if err := s.saveEntries(ctx, entries); err != nil {
		// The reconciler re-inserts queued products that lost their entry.
		return false, err
	}

	s.changes.Invalidate(ctx, enums.RecordKindProducts)
	return true, nil
}

// AddBatch stages several products as one logical unit: quantities are all
// validated up front, availability flips for every accepted product in one
// transaction, and the queue key is rewritten with a single SET so readers
// never observe a partial batch.
func (s *service) AddBatch(ctx context.Context, items []BatchItem) (*BatchReport, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items given")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer").
				WithDetails(map[string]any{"product": item.ProductRef})
		}
	}

	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{}
	type accepted struct {
		id  uuid.UUID
		qty int
	}
	var toAdd []accepted
	seen := make(map[uuid.UUID]struct{})
	for _, item := range items {
		prod, err := s.resolver.ResolveProduct(ctx, item.ProductRef)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[prod.ID]; dup || hasEntry(entries, prod.ID) {
			report.Skipped++
			continue
		}
		if prod.POStatus != enums.AvailabilityStatusAvailable {
			report.Skipped++
			continue
		}
		seen[prod.ID] = struct{}{}
		toAdd = append(toAdd, accepted{id: prod.ID, qty: item.Quantity})
	}

	if len(toAdd) == 0 {
		return report, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.products.WithTx(tx)
		for _, item := range toAdd {
			changed, err := repo.UpdateAvailability(ctx, item.id,
				enums.AvailabilityStatusAvailable, enums.AvailabilityStatusQueued,
				map[string]any{"default_qty": item.qty})
			if err != nil {
				return err
			}
			if !changed {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "product no longer available").
					WithDetails(map[string]any{"product_id": item.id.String()})
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stage batch")
	}

	addedAt := s.now().UTC()
	for _, item := range toAdd {
		entries = append(entries, Entry{ProductID: item.id, Quantity: item.qty, AddedAt: addedAt})
		report.Added++
	}
	if err := s.saveEntries(ctx, entries); err != nil {
		return nil, err
	}

	s.changes.Invalidate(ctx, enums.RecordKindProducts)
	return report, nil
}

// Remove unstages one product and returns it to the available pool. A
// reference that is not staged is a no-op.
func (s *service) Remove(ctx context.Context, productRef string) error {
	prod, err := s.resolver.ResolveProduct(ctx, productRef)
	if err != nil {
		return err
	}

	entries, err := s.loadEntries(ctx)
	if err != nil {
		return err
	}
	remaining := dropEntry(entries, prod.ID)

	if _, err := s.products.UpdateAvailability(ctx, prod.ID,
		enums.AvailabilityStatusQueued, enums.AvailabilityStatusAvailable, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark product available")
	}

	if len(remaining) != len(entries) {
		if err := s.saveEntries(ctx, remaining); err != nil {
			return err
		}
	}

	s.changes.Invalidate(ctx, enums.RecordKindProducts)
	return nil
}

// RemoveStaged drops a product's entry without touching availability. The
// product-delete path uses it once the row itself is gone.
func (s *service) RemoveStaged(ctx context.Context, productID uuid.UUID) error {
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return err
	}
	remaining := dropEntry(entries, productID)
	if len(remaining) == len(entries) {
		return nil
	}
	return s.saveEntries(ctx, remaining)
}

// RemoveProcessed drops the entries the PO generator has turned into order
// lines. Availability was already advanced to po_created inside the
// generator's transaction.
func (s *service) RemoveProcessed(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return err
	}
	processed := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		processed[id] = struct{}{}
	}
	remaining := entries[:0:0]
	for _, entry := range entries {
		if _, ok := processed[entry.ProductID]; !ok {
			remaining = append(remaining, entry)
		}
	}
	return s.saveEntries(ctx, remaining)
}

// Clear unstages everything, returning each product to available.
func (s *service) Clear(ctx context.Context) error {
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if _, err := s.products.UpdateAvailability(ctx, entry.ProductID,
			enums.AvailabilityStatusQueued, enums.AvailabilityStatusAvailable, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark product available")
		}
	}
	if err := s.store.Del(ctx, s.store.QueueKey()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear queue")
	}
	s.changes.Invalidate(ctx, enums.RecordKindProducts)
	return nil
}

// Entries returns the raw staged entries in the order they were added.
func (s *service) Entries(ctx context.Context) ([]Entry, error) {
	return s.loadEntries(ctx)
}

// List joins the staged entries with product and vendor data for display.
func (s *service) List(ctx context.Context) (*View, error) {
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &View{Entries: []EntryView{}}, nil
	}

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

	views := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		prod, ok := byID[entry.ProductID]
		if !ok {
			// Deleted since staging; the reconciler will drop it.
			continue
		}
		view := EntryView{
			ProductID:        prod.ID,
			ProductDisplayID: prod.DisplayID,
			ProductName:      prod.Name,
			Unit:             string(prod.Unit),
			Quantity:         entry.Quantity,
			AddedAt:          entry.AddedAt,
			VendorID:         prod.VendorID,
		}
		if prod.Vendor != nil {
			view.VendorDisplayID = &prod.Vendor.DisplayID
			view.VendorName = &prod.Vendor.Name
		}
		views = append(views, view)
	}
	return &View{Entries: views, Total: len(views)}, nil
}

// Reconcile repairs the cached queue against the durable po_status: entries
// whose product is gone or no longer queued are dropped, and queued products
// missing an entry are re-inserted with their stored quantity.
func (s *service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}

	queued, err := s.products.ListByAvailability(ctx, enums.AvailabilityStatusQueued)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list queued products")
	}
	queuedByID := make(map[uuid.UUID]*models.Product, len(queued))
	for i := range queued {
		queuedByID[queued[i].ID] = &queued[i]
	}

	report := &ReconcileReport{}
	kept := make([]Entry, 0, len(entries))
	staged := make(map[uuid.UUID]struct{}, len(entries))
	for _, entry := range entries {
		if _, ok := queuedByID[entry.ProductID]; !ok {
			report.Dropped++
			continue
		}
		kept = append(kept, entry)
		staged[entry.ProductID] = struct{}{}
	}

	var restored []Entry
	for i := range queued {
		if _, ok := staged[queued[i].ID]; ok {
			continue
		}
		qty := queued[i].DefaultQty
		if qty <= 0 {
			qty = 1
		}
		restored = append(restored, Entry{ProductID: queued[i].ID, Quantity: qty, AddedAt: s.now().UTC()})
		report.Restored++
	}
	// Keep restored entries in the products' creation order for stable output.
	sort.SliceStable(restored, func(i, j int) bool {
		return queuedByID[restored[i].ProductID].CreatedAt.Before(queuedByID[restored[j].ProductID].CreatedAt)
	})
	kept = append(kept, restored...)

	if report.Dropped > 0 || report.Restored > 0 {
		if err := s.saveEntries(ctx, kept); err != nil {
			return nil, err
		}
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"dropped":  report.Dropped,
			"restored": report.Restored,
		}), "queue reconciled")
	}
	return report, nil
}

func (s *service) loadEntries(ctx context.Context) ([]Entry, error) {
	raw, err := s.store.Get(ctx, s.store.QueueKey())
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load queue")
	}
	if raw == "" {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode queue")
	}
	return entries, nil
}

func (s *service) saveEntries(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode queue")
	}
	if err := s.store.Set(ctx, s.store.QueueKey(), string(payload), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist queue")
	}
	return nil
}

func hasEntry(entries []Entry, productID uuid.UUID) bool {
	for _, entry := range entries {
		if entry.ProductID == productID {
			return true
		}
	}
	return false
}

func dropEntry(entries []Entry, productID uuid.UUID) []Entry {
	remaining := entries[:0:0]
	for _, entry := range entries {
		if entry.ProductID != productID {
			remaining = append(remaining, entry)
		}
	}
	return remaining
}
