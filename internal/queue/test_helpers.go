package queue

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	product "github.com/martincervantes/procurehub-backend/internal/products"
	"github.com/martincervantes/procurehub-backend/internal/refs"
	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

func setupQueueTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	vendors := `
CREATE TABLE IF NOT EXISTS vendors (
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
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
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
);`
	require.NoError(t, gdb.Exec(vendors).Error)
	require.NoError(t, gdb.Exec(products).Error)
	require.NoError(t, gdb.Exec(`DELETE FROM vendors`).Error)
	require.NoError(t, gdb.Exec(`DELETE FROM products`).Error)
	return gdb
}

func seedQueueProduct(t *testing.T, gdb *gorm.DB, displayID, name string, vendorID *uuid.UUID) *models.Product {
	t.Helper()

	display := displayID
	row := &models.Product{
		ID:                uuid.New(),
		DisplayID:         &display,
		Name:              name,
		Unit:              enums.ProductUnitPcs,
		DefaultQty:        1,
		POStatus:          enums.AvailabilityStatusAvailable,
		IncludeInCreatePO: true,
		VendorID:          vendorID,
	}
	require.NoError(t, gdb.Create(row).Error)
	return row
}

// memoryStore is an in-process stand-in for the redis queue key.
type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]string)}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return value, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	m.sets++
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryStore) QueueKey() string {
	return "procurehub:queue:po"
}

func (m *memoryStore) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
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

func newTestQueueService(t *testing.T, gdb *gorm.DB) (Service, *memoryStore) {
	t.Helper()

	store := newMemoryStore()
	logg := logger.New(logger.Options{ServiceName: "queue-test", Output: io.Discard})
	svc, err := NewService(
		store,
		product.NewRepository(gdb),
		refs.NewResolver(gdb),
		sqliteTxRunner{db: gdb},
		&stubChangeNotifier{},
		logg,
	)
	require.NoError(t, err)
	return svc, store
}

func productStatus(t *testing.T, gdb *gorm.DB, id uuid.UUID) enums.AvailabilityStatus {
	t.Helper()

	var row models.Product
	require.NoError(t, gdb.First(&row, "id = ?", id).Error)
	return row.POStatus
}
