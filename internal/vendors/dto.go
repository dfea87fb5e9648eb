package vendors

import (
	"time"

	"github.com/google/uuid"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

// VendorDTO is the vendor payload returned to clients.
type VendorDTO struct {
	ID           uuid.UUID `json:"id"`
	DisplayID    string    `json:"display_id"`
	Name         string    `json:"name"`
	GSTNumber    *string   `json:"gst_number,omitempty"`
	Address      *string   `json:"address,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	ContactName  *string   `json:"contact_name,omitempty"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FromModel builds a DTO from the persisted vendor.
func FromModel(vendor *models.Vendor) *VendorDTO {
	if vendor == nil {
		return nil
	}
	return &VendorDTO{
		ID:           vendor.ID,
		DisplayID:    vendor.DisplayID,
		Name:         vendor.Name,
		GSTNumber:    vendor.GSTNumber,
		Address:      vendor.Address,
		Phone:        vendor.Phone,
		ContactName:  vendor.ContactName,
		ContactEmail: vendor.ContactEmail,
		CreatedAt:    vendor.CreatedAt,
		UpdatedAt:    vendor.UpdatedAt,
	}
}

// CreateVendorInput holds the validated payload to create a vendor.
type CreateVendorInput struct {
	Name         string
	GSTNumber    *string
	Address      *string
	Phone        *string
	ContactName  *string
	ContactEmail *string
}

// UpdateVendorInput holds optional mutation values. Nil means unchanged.
type UpdateVendorInput struct {
	Name         *string
	GSTNumber    *string
	Address      *string
	Phone        *string
	ContactName  *string
	ContactEmail *string
}

// ListVendorsInput captures pagination plus the search filter.
type ListVendorsInput struct {
	Query      string
	Pagination pagination.Params
}

// VendorListResult wraps a page of vendors plus the next page cursor.
type VendorListResult struct {
	Vendors    []VendorDTO `json:"vendors"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// ImportReport summarizes a batch import. Duplicates lists the names that
// were skipped because a vendor with the same normalized name exists, either
// in the store or earlier in the same batch.
type ImportReport struct {
	Added      int      `json:"added"`
	Skipped    int      `json:"skipped"`
	Duplicates []string `json:"duplicates,omitempty"`
}

// BulkDeleteReport summarizes a bulk delete: how many rows went away and
// which references could not be resolved.
type BulkDeleteReport struct {
	Deleted int      `json:"deleted"`
	Missing []string `json:"missing,omitempty"`
}
