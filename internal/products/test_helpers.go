package product

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
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
	refSequences := `
CREATE TABLE IF NOT EXISTS ref_sequences (
  kind TEXT PRIMARY KEY,
  last_value INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	require.NoError(t, gdb.Exec(vendors).Error)
	require.NoError(t, gdb.Exec(products).Error)
	require.NoError(t, gdb.Exec(refSequences).Error)
	require.NoError(t, gdb.Exec(`DELETE FROM products`).Error)
	require.NoError(t, gdb.Exec(`DELETE FROM vendors`).Error)
	require.NoError(t, gdb.Exec(`DELETE FROM ref_sequences`).Error)
	return gdb
}

func newVendorRow(t *testing.T, gdb *gorm.DB, displayID, name string) *models.Vendor {
	t.Helper()

	vendor := &models.Vendor{
		ID:        uuid.New(),
		DisplayID: displayID,
		Name:      name,
	}
	require.NoError(t, gdb.Create(vendor).Error)
	return vendor
}

func newProductRow(t *testing.T, gdb *gorm.DB, name string, status enums.AvailabilityStatus, vendorID *uuid.UUID) *models.Product {
	t.Helper()

	row := &models.Product{
		ID:                uuid.New(),
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

type stubStagedRemover struct {
	mu      sync.Mutex
	removed []uuid.UUID
	err     error
}

func (s *stubStagedRemover) RemoveStaged(ctx context.Context, productID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, productID)
	return nil
}

type stubChangeNotifier struct {
	mu    sync.Mutex
	kinds []enums.RecordKind
}

func (s *stubChangeNotifier) Invalidate(ctx context.Context, kind enums.RecordKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
}

func (s *stubChangeNotifier) count(kind enums.RecordKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, k := range s.kinds {
		if k == kind {
			total++
		}
	}
	return total
}

func newTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "products-test", Output: io.Discard})
}

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
