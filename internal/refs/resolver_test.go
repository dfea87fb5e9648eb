package refs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
)

func seedVendor(t *testing.T, db *gorm.DB, displayID, name string) *models.Vendor {
	t.Helper()

	vendor := &models.Vendor{
		ID:        uuid.New(),
		DisplayID: displayID,
		Name:      name,
	}
	require.NoError(t, db.Create(vendor).Error)
	return vendor
}

func TestResolverFindsVendorByUUIDAndHandle(t *testing.T) {
	db := setupRefsTestDB(t)
	resolver := NewResolver(db)
	vendor := seedVendor(t, db, "V901", "Resolver Supply Co")

	byID, err := resolver.ResolveVendor(context.Background(), vendor.ID.String())
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, byID.ID)

	byHandle, err := resolver.ResolveVendor(context.Background(), "V901")
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, byHandle.ID)
	assert.Equal(t, "Resolver Supply Co", byHandle.Name)
}

func TestResolverUnknownVendorIsNotFound(t *testing.T) {
	db := setupRefsTestDB(t)
	resolver := NewResolver(db)

	_, err := resolver.ResolveVendor(context.Background(), "V999")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = resolver.ResolveVendor(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestResolverRejectsEmptyReference(t *testing.T) {
	db := setupRefsTestDB(t)
	resolver := NewResolver(db)

	_, err := resolver.ResolveVendor(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
