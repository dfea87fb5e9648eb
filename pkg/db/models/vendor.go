package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vendor is a supplier record. DisplayID carries the sequential V### handle;
// the value is allocated once and never reissued, even after deletion. Name
// uniqueness is case-insensitive over the trimmed value, enforced by a
// functional index in the schema.
type Vendor struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisplayID    string    `gorm:"column:display_id;not null;uniqueIndex"`
	Name         string    `gorm:"column:name;not null"`
	GSTNumber    *string   `gorm:"column:gst_number"`
	Address      *string   `gorm:"column:address"`
	Phone        *string   `gorm:"column:phone"`
	ContactName  *string   `gorm:"column:contact_name"`
	ContactEmail *string   `gorm:"column:contact_email"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the id client-side when the dialect has no uuid
// default (the SQLite test databases).
func (v *Vendor) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
