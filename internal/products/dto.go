package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID                uuid.UUID         `json:"id"`
	DisplayID         *string           `json:"display_id,omitempty"`
	Name              string            `json:"name"`
	Brand             *string           `json:"brand,omitempty"`
	Category          *string           `json:"category,omitempty"`
	Unit              string            `json:"unit"`
	CurrentStock      int               `json:"current_stock"`
	ReorderLevel      int               `json:"reorder_level"`
	DefaultQty        int               `json:"default_qty"`
	POStatus          string            `json:"po_status"`
	IncludeInCreatePO bool              `json:"include_in_create_po"`
	Vendor            *VendorSummaryDTO `json:"vendor,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// VendorSummaryDTO surfaces the vendor fields product reads need.
type VendorSummaryDTO struct {
	ID        uuid.UUID `json:"id"`
	DisplayID string    `json:"display_id"`
	Name      string    `json:"name"`
}

// NewProductDTO builds a DTO from the persisted model. Vendor is attached
// when the association was preloaded.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:                product.ID,
		DisplayID:         product.DisplayID,
		Name:              product.Name,
		Brand:             product.Brand,
		Category:          product.Category,
		Unit:              string(product.Unit),
		CurrentStock:      product.CurrentStock,
		ReorderLevel:      product.ReorderLevel,
		DefaultQty:        product.DefaultQty,
		POStatus:          string(product.POStatus),
		IncludeInCreatePO: product.IncludeInCreatePO,
		CreatedAt:         product.CreatedAt,
		UpdatedAt:         product.UpdatedAt,
	}
	if product.Vendor != nil {
		dto.Vendor = &VendorSummaryDTO{
			ID:        product.Vendor.ID,
			DisplayID: product.Vendor.DisplayID,
			Name:      product.Vendor.Name,
		}
	}
	return dto
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name         string
	Brand        *string
	Category     *string
	Unit         enums.ProductUnit
	CurrentStock int
	ReorderLevel int
	DefaultQty   int
	VendorRef    *string
}

// UpdateProductInput holds optional mutation values. Nil means unchanged;
// a VendorRef pointing at the empty string detaches the vendor.
type UpdateProductInput struct {
	Name         *string
	Brand        *string
	Category     *string
	Unit         *enums.ProductUnit
	CurrentStock *int
	ReorderLevel *int
	DefaultQty   *int
	VendorRef    *string
}

// ProductListFilters describe the supported list knobs. POStatus nil keeps
// the default selection view, which shows available products only.
type ProductListFilters struct {
	POStatus  *enums.AvailabilityStatus
	VendorRef *string
	Query     string
}

// ListProductsInput captures pagination plus filters for the product list.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}

// ProductSummary is one row of the product list.
type ProductSummary struct {
	ID                uuid.UUID `json:"id"`
	DisplayID         *string   `json:"display_id,omitempty"`
	Name              string    `json:"name"`
	Brand             *string   `json:"brand,omitempty"`
	Category          *string   `json:"category,omitempty"`
	Unit              string    `json:"unit"`
	CurrentStock      int       `json:"current_stock"`
	ReorderLevel      int       `json:"reorder_level"`
	DefaultQty        int       `json:"default_qty"`
	POStatus          string    `json:"po_status"`
	IncludeInCreatePO bool      `json:"include_in_create_po"`
	VendorID          *uuid.UUID `json:"vendor_id,omitempty"`
	VendorName        *string   `json:"vendor_name,omitempty"`
	VendorDisplayID   *string   `json:"vendor_display_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ProductListResult wraps the paginated rows plus the next page cursor.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// BulkDeleteReport summarizes a bulk delete: how many rows went away and
// which references could not be resolved.
type BulkDeleteReport struct {
	Deleted  int      `json:"deleted"`
	Missing  []string `json:"missing,omitempty"`
}
