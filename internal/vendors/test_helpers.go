package vendors

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/internal/refs"
	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
)

func setupVendorTestDB(t *testing.T) *gorm.DB {
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
	refSequences := `
CREATE TABLE IF NOT EXISTS ref_sequences (
  kind TEXT PRIMARY KEY,
  last_value INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	nameIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS idx_vendors_name_ci ON vendors (LOWER(TRIM(name)));`
	require.NoError(t, gdb.Exec(vendors).Error)
	require.NoError(t, gdb.Exec(refSequences).Error)
	require.NoError(t, gdb.Exec(nameIndex).Error)
	require.NoError(t, gdb.Exec(`DELETE FROM vendors`).Error)
	require.NoError(t, gdb.Exec(`DELETE FROM ref_sequences`).Error)
	return gdb
}

func seedVendor(t *testing.T, gdb *gorm.DB, displayID, name string) *models.Vendor {
	t.Helper()

	vendor := &models.Vendor{
		ID:        uuid.New(),
		DisplayID: displayID,
		Name:      name,
	}
	require.NoError(t, gdb.Create(vendor).Error)
	return vendor
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

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T, gdb *gorm.DB) (Service, *stubChangeNotifier) {
	t.Helper()

	changes := &stubChangeNotifier{}
	logg := logger.New(logger.Options{ServiceName: "vendors-test", Output: io.Discard})
	svc, err := NewService(
		NewRepository(gdb),
		sqliteTxRunner{db: gdb},
		refs.NewAllocator(gdb),
		refs.NewResolver(gdb),
		changes,
		logg,
	)
	require.NoError(t, err)
	return svc, changes
}
