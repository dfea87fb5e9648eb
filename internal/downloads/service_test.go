package downloads

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

func setupDownloadsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS download_logs (
  id TEXT PRIMARY KEY,
  purchase_order_id TEXT NOT NULL,
  po_number TEXT NOT NULL,
  location TEXT NOT NULL,
  actor_id TEXT NOT NULL,
  actor_name TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, gdb.Exec(schema).Error)
	require.NoError(t, gdb.Exec(`DELETE FROM download_logs`).Error)
	return gdb
}

func newDownloadsService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "downloads-test", Output: io.Discard})
	svc, err := NewService(NewRepository(gdb), logg)
	require.NoError(t, err)
	return svc
}

func TestRecordAppendsRow(t *testing.T) {
	gdb := setupDownloadsTestDB(t)
	svc := newDownloadsService(t, gdb)

	poID := uuid.New()
	actorID := uuid.New()
	entry, err := svc.Record(context.Background(), RecordInput{
		PurchaseOrderID: poID,
		PONumber:        "PO-0001",
		Location:        "pdf",
		ActorID:         actorID,
		ActorName:       "Dana Reyes",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, "PO-0001", entry.PONumber)
	assert.Equal(t, "pdf", entry.Location)

	list, err := svc.List(context.Background(), pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Entries, 1)
	assert.Equal(t, poID, list.Entries[0].PurchaseOrderID)
	assert.Equal(t, "Dana Reyes", list.Entries[0].ActorName)
}

func TestRecordValidation(t *testing.T) {
	gdb := setupDownloadsTestDB(t)
	svc := newDownloadsService(t, gdb)

	_, err := svc.Record(context.Background(), RecordInput{
		PONumber: "PO-0001",
		Location: "pdf",
		ActorID:  uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.Record(context.Background(), RecordInput{
		PurchaseOrderID: uuid.New(),
		Location:        "pdf",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = svc.Record(context.Background(), RecordInput{
		PurchaseOrderID: uuid.New(),
		ActorID:         uuid.New(),
		Location:        "  ",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestListPagesNewestFirst(t *testing.T) {
	gdb := setupDownloadsTestDB(t)
	svc := newDownloadsService(t, gdb)

	now := time.Now().UTC()
	for i, label := range []string{"pdf", "xlsx", "email:ops@example.com"} {
		require.NoError(t, gdb.Exec(
			`INSERT INTO download_logs (id, purchase_order_id, po_number, location, actor_id, actor_name, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), uuid.NewString(), "PO-0001", label, uuid.NewString(), "Dana", now.Add(time.Duration(i)*time.Minute),
		).Error)
	}

	first, err := svc.List(context.Background(), pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	assert.Equal(t, "email:ops@example.com", first.Entries[0].Location)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.List(context.Background(), pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Entries, 1)
	assert.Equal(t, "pdf", second.Entries[0].Location)
	assert.Empty(t, second.NextCursor)
}
