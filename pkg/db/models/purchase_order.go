package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/enums"
)

// PurchaseOrder is a vendor-scoped order document. VendorName is a snapshot
// taken at generation time so the document survives vendor deletion.
// TotalItems counts line items, not quantities.
type PurchaseOrder struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number          string              `gorm:"column:number;not null;uniqueIndex"`
	VendorID        *uuid.UUID          `gorm:"column:vendor_id;type:uuid"`
	VendorName      string              `gorm:"column:vendor_name;not null"`
	Status          enums.POStatus      `gorm:"column:status;not null;default:created"`
	CreatedBy       uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedByName   string              `gorm:"column:created_by_name;not null"`
	DecidedBy       *uuid.UUID          `gorm:"column:decided_by;type:uuid"`
	DecidedByName   *string             `gorm:"column:decided_by_name"`
	DecidedAt       *time.Time          `gorm:"column:decided_at"`
	RejectionReason string              `gorm:"column:rejection_reason;not null;default:''"`
	TotalItems      int                 `gorm:"column:total_items;not null;default:0"`
	Items           []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchaseOrderItem is one line of a purchase order. ProductName is a
// snapshot; ProductID may go nil if the product is later deleted. Position
// preserves the order items were encountered at generation.
type PurchaseOrderItem struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseOrderID uuid.UUID  `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	ProductID       *uuid.UUID `gorm:"column:product_id;type:uuid"`
	ProductName     string     `gorm:"column:product_name;not null"`
	Quantity        int        `gorm:"column:quantity;not null"`
	Position        int        `gorm:"column:position;not null;default:0"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns ids client-side when the dialect has no uuid default
// (the SQLite test databases).
func (po *PurchaseOrder) BeforeCreate(_ *gorm.DB) error {
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	return nil
}

func (i *PurchaseOrderItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
