package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/enums"
)

// Product is an orderable catalog item. POStatus and IncludeInCreatePO move
// together: the flag is true exactly when the status is available.
type Product struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisplayID         *string                  `gorm:"column:display_id;uniqueIndex"`
	Name              string                   `gorm:"column:name;not null"`
	Brand             *string                  `gorm:"column:brand"`
	Category          *string                  `gorm:"column:category"`
	Unit              enums.ProductUnit        `gorm:"column:unit;not null;default:pcs"`
	CurrentStock      int                      `gorm:"column:current_stock;not null;default:0"`
	ReorderLevel      int                      `gorm:"column:reorder_level;not null;default:0"`
	DefaultQty        int                      `gorm:"column:default_qty;not null;default:1"`
	POStatus          enums.AvailabilityStatus `gorm:"column:po_status;not null;default:available"`
	IncludeInCreatePO bool                     `gorm:"column:include_in_create_po;not null;default:true"`
	VendorID          *uuid.UUID               `gorm:"column:vendor_id;type:uuid"`
	Vendor            *Vendor                  `gorm:"foreignKey:VendorID"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id client-side when the dialect has no uuid
// default (the SQLite test databases).
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
