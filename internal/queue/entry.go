package queue

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one staged line in the PO queue: a product and the quantity an
// operator asked for. The queue holds at most one entry per product.
type Entry struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// BatchItem is one requested addition in an AddBatch call.
type BatchItem struct {
	ProductRef string
	Quantity   int
}

// BatchReport counts how an AddBatch call went. Skipped covers items whose
// product was already staged or no longer available.
type BatchReport struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// ReconcileReport summarizes one reconciliation sweep against the store.
type ReconcileReport struct {
	Dropped  int `json:"dropped"`
	Restored int `json:"restored"`
}

// EntryView is one queue row joined with product and vendor data for display.
type EntryView struct {
	ProductID        uuid.UUID  `json:"product_id"`
	ProductDisplayID *string    `json:"product_display_id,omitempty"`
	ProductName      string     `json:"product_name"`
	Unit             string     `json:"unit"`
	Quantity         int        `json:"quantity"`
	AddedAt          time.Time  `json:"added_at"`
	VendorID         *uuid.UUID `json:"vendor_id,omitempty"`
	VendorDisplayID  *string    `json:"vendor_display_id,omitempty"`
	VendorName       *string    `json:"vendor_name,omitempty"`
}

// View is the full queue as shown to operators.
type View struct {
	Entries []EntryView `json:"entries"`
	Total   int         `json:"total"`
}
