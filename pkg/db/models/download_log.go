package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DownloadLog is an append-only audit row for export/send actions. Nothing
// in the codebase updates or deletes these rows.
type DownloadLog struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseOrderID uuid.UUID `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	PONumber        string    `gorm:"column:po_number;not null"`
	Location        string    `gorm:"column:location;not null"`
	ActorID         uuid.UUID `gorm:"column:actor_id;type:uuid;not null"`
	ActorName       string    `gorm:"column:actor_name;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the id client-side when the dialect has no uuid
// default (the SQLite test databases).
func (d *DownloadLog) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
