package queue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
)

func TestAddStagesAvailableProduct(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, _ := newTestQueueService(t, gdb)
	prod := seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)

	added, err := svc.Add(context.Background(), "P001", 5)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, enums.AvailabilityStatusQueued, productStatus(t, gdb, prod.ID))

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, prod.ID, entries[0].ProductID)
	assert.Equal(t, 5, entries[0].Quantity)
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, _ := newTestQueueService(t, gdb)
	seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)

	for _, qty := range []int{0, -3} {
		_, err := svc.Add(context.Background(), "P001", qty)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	}

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAddIsIdempotentPerProduct(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, _ := newTestQueueService(t, gdb)
	prod := seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)

	added, err := svc.Add(context.Background(), prod.ID.String(), 2)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.Add(context.Background(), "P001", 9)
	require.NoError(t, err)
	assert.False(t, added)

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Quantity)
}

func TestAddUnknownProduct(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, _ := newTestQueueService(t, gdb)

	_, err := svc.Add(context.Background(), "P999", 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestAddBatchWritesQueueOnce(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, store := newTestQueueService(t, gdb)
	first := seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)
	second := seedQueueProduct(t, gdb, "P002", "Stapler", nil)

	report, err := svc.AddBatch(context.Background(), []BatchItem{
		{ProductRef: "P001", Quantity: 3},
		{ProductRef: "P002", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, store.setCount())

	assert.Equal(t, enums.AvailabilityStatusQueued, productStatus(t, gdb, first.ID))
	assert.Equal(t, enums.AvailabilityStatusQueued, productStatus(t, gdb, second.ID))
}

func TestAddBatchSkipsStagedAndDuplicateItems(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, _ := newTestQueueService(t, gdb)
	seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)
	seedQueueProduct(t, gdb, "P002", "Stapler", nil)

	_, err := svc.Add(context.Background(), "P001", 2)
	require.NoError(t, err)

	report, err := svc.AddBatch(context.Background(), []BatchItem{
		{ProductRef: "P001", Quantity: 4},
		{ProductRef: "P002", Quantity: 1},
		{ProductRef: "P002", Quantity: 6},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 2, report.Skipped)

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].Quantity)
	assert.Equal(t, 1, entries[1].Quantity)
}

func TestAddBatchRejectsBadQuantityBeforeAnyWrite(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, store := newTestQueueService(t, gdb)
	prod := seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)

	_, err := svc.AddBatch(context.Background(), []BatchItem{
		{ProductRef: "P001", Quantity: 3},
		{ProductRef: "P001", Quantity: 0},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Equal(t, 0, store.setCount())
	assert.Equal(t, enums.AvailabilityStatusAvailable, productStatus(t, gdb, prod.ID))
}

func TestRemoveReturnsProductToAvailable(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, _ := newTestQueueService(t, gdb)
	prod := seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)

	_, err := svc.Add(context.Background(), "P001", 2)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), "P001"))
	assert.Equal(t, enums.AvailabilityStatusAvailable, productStatus(t, gdb, prod.ID))

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Removing again is harmless.
	require.NoError(t, svc.Remove(context.Background(), "P001"))
}

func TestClearEmptiesQueueAndRestoresAvailability(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, _ := newTestQueueService(t, gdb)
	first := seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)
	second := seedQueueProduct(t, gdb, "P002", "Stapler", nil)

	_, err := svc.Add(context.Background(), "P001", 2)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "P002", 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background()))
	assert.Equal(t, enums.AvailabilityStatusAvailable, productStatus(t, gdb, first.ID))
	assert.Equal(t, enums.AvailabilityStatusAvailable, productStatus(t, gdb, second.ID))

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListJoinsProductAndVendorData(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, _ := newTestQueueService(t, gdb)

	vendorID := uuid.New()
	require.NoError(t, gdb.Exec(
		`INSERT INTO vendors (id, display_id, name) VALUES (?, ?, ?)`,
		vendorID, "V001", "Acme Supplies",
	).Error)
	withVendor := seedQueueProduct(t, gdb, "P001", "Copier Paper A4", &vendorID)
	orphan := seedQueueProduct(t, gdb, "P002", "Stapler", nil)

	_, err := svc.Add(context.Background(), "P001", 3)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "P002", 1)
	require.NoError(t, err)

	view, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, 2, view.Total)

	assert.Equal(t, withVendor.ID, view.Entries[0].ProductID)
	require.NotNil(t, view.Entries[0].VendorName)
	assert.Equal(t, "Acme Supplies", *view.Entries[0].VendorName)
	require.NotNil(t, view.Entries[0].VendorDisplayID)
	assert.Equal(t, "V001", *view.Entries[0].VendorDisplayID)

	assert.Equal(t, orphan.ID, view.Entries[1].ProductID)
	assert.Nil(t, view.Entries[1].VendorName)
}

func TestRemoveProcessedDropsOnlyOrderedEntries(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, _ := newTestQueueService(t, gdb)
	first := seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)
	second := seedQueueProduct(t, gdb, "P002", "Stapler", nil)

	_, err := svc.Add(context.Background(), "P001", 2)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "P002", 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveProcessed(context.Background(), []uuid.UUID{first.ID}))

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, second.ID, entries[0].ProductID)
}

func TestReconcileDropsStaleAndRestoresMissingEntries(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, _ := newTestQueueService(t, gdb)
	stale := seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)
	kept := seedQueueProduct(t, gdb, "P002", "Stapler", nil)
	lost := seedQueueProduct(t, gdb, "P003", "Whiteboard Marker", nil)

	_, err := svc.Add(context.Background(), "P001", 2)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "P002", 1)
	require.NoError(t, err)

	// stale: entry kept in redis but the product moved on to po_created.
	require.NoError(t, gdb.Exec(
		`UPDATE products SET po_status = ? WHERE id = ?`,
		enums.AvailabilityStatusPOCreated, stale.ID,
	).Error)
	// lost: product is durably queued but its redis entry is gone.
	require.NoError(t, gdb.Exec(
		`UPDATE products SET po_status = ?, default_qty = 7 WHERE id = ?`,
		enums.AvailabilityStatusQueued, lost.ID,
	).Error)

	report, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 1, report.Restored)

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, kept.ID, entries[0].ProductID)
	assert.Equal(t, lost.ID, entries[1].ProductID)
	assert.Equal(t, 7, entries[1].Quantity)
}

func TestReconcileNoChangesLeavesStoreUntouched(t *testing.T) {
	gdb := setupQueueTestDB(t)
	svc, store := newTestQueueService(t, gdb)
	seedQueueProduct(t, gdb, "P001", "Copier Paper A4", nil)

	_, err := svc.Add(context.Background(), "P001", 2)
	require.NoError(t, err)
	before := store.setCount()

	report, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Dropped)
	assert.Equal(t, 0, report.Restored)
	assert.Equal(t, before, store.setCount())
}
