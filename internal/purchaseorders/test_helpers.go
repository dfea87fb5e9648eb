package purchaseorders

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/internal/downloads"
	product "github.com/martincervantes/procurehub-backend/internal/products"
	"github.com/martincervantes/procurehub-backend/internal/queue"
	"github.com/martincervantes/procurehub-backend/internal/refs"
	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  display_id TEXT NOT NULL,
  name TEXT NOT NULL,
  gst_number TEXT,
  address TEXT,
  phone TEXT,
  contact_name TEXT,
  contact_email TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  display_id TEXT,
  name TEXT NOT NULL,
  brand TEXT,
  category TEXT,
  unit TEXT NOT NULL DEFAULT 'pcs',
  current_stock INTEGER NOT NULL DEFAULT 0,
  reorder_level INTEGER NOT NULL DEFAULT 0,
  default_qty INTEGER NOT NULL DEFAULT 1,
  po_status TEXT NOT NULL DEFAULT 'available',
  include_in_create_po INTEGER NOT NULL DEFAULT 1,
  vendor_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS purchase_orders (
  id TEXT PRIMARY KEY,
  number TEXT NOT NULL UNIQUE,
  vendor_id TEXT,
  vendor_name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'created',
  created_by TEXT NOT NULL,
  created_by_name TEXT NOT NULL,
  decided_by TEXT,
  decided_by_name TEXT,
  decided_at DATETIME,
  rejection_reason TEXT NOT NULL DEFAULT '',
  total_items INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS purchase_order_items (
  id TEXT PRIMARY KEY,
  purchase_order_id TEXT NOT NULL,
  product_id TEXT,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS download_logs (
  id TEXT PRIMARY KEY,
  purchase_order_id TEXT NOT NULL,
  po_number TEXT NOT NULL,
  location TEXT NOT NULL,
  actor_id TEXT NOT NULL,
  actor_name TEXT NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, gdb.Exec(stmt).Error)
	}
	for _, table := range []string{"vendors", "products", "purchase_orders", "purchase_order_items", "download_logs"} {
		require.NoError(t, gdb.Exec(`DELETE FROM `+table).Error)
	}
	return gdb
}

func seedOrderVendor(t *testing.T, gdb *gorm.DB, displayID, name string) *models.Vendor {
	t.Helper()

	vendor := &models.Vendor{ID: uuid.New(), DisplayID: displayID, Name: name}
	require.NoError(t, gdb.Create(vendor).Error)
	return vendor
}

func seedOrderProduct(t *testing.T, gdb *gorm.DB, displayID, name string, vendorID *uuid.UUID, status enums.AvailabilityStatus) *models.Product {
	t.Helper()

	display := displayID
	row := &models.Product{
		ID:                uuid.New(),
		DisplayID:         &display,
		Name:              name,
		Unit:              enums.ProductUnitPcs,
		DefaultQty:        1,
		POStatus:          status,
		IncludeInCreatePO: status == enums.AvailabilityStatusAvailable,
		VendorID:          vendorID,
	}
	require.NoError(t, gdb.Create(row).Error)
	return row
}

// memoryQueue is an in-process staging queue for generator tests.
type memoryQueue struct {
	mu      sync.Mutex
	entries []queue.Entry
}

func (m *memoryQueue) stage(productID uuid.UUID, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, queue.Entry{ProductID: productID, Quantity: qty, AddedAt: time.Now().UTC()})
}

func (m *memoryQueue) Entries(context.Context) ([]queue.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *memoryQueue) RemoveProcessed(_ context.Context, productIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	processed := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		processed[id] = struct{}{}
	}
	remaining := m.entries[:0:0]
	for _, entry := range m.entries {
		if _, ok := processed[entry.ProductID]; !ok {
			remaining = append(remaining, entry)
		}
	}
	m.entries = remaining
	return nil
}

func (m *memoryQueue) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type stubChangeNotifier struct {
	mu    sync.Mutex
	kinds []enums.RecordKind
}

func (s *stubChangeNotifier) Invalidate(_ context.Context, kind enums.RecordKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
}

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestOrderService(t *testing.T, gdb *gorm.DB) (Service, *memoryQueue) {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "purchaseorders-test", Output: io.Discard})
	audit, err := downloads.NewService(downloads.NewRepository(gdb), logg)
	require.NoError(t, err)

	staging := &memoryQueue{}
	svc, err := NewService(
		NewRepository(gdb),
		product.NewRepository(gdb),
		staging,
		refs.NewResolver(gdb),
		sqliteTxRunner{db: gdb},
		audit,
		&stubChangeNotifier{},
		logg,
	)
	require.NoError(t, err)
	return svc, staging
}

func testActor() Actor {
	return Actor{ID: uuid.New(), Name: "Dana Reyes"}
}
