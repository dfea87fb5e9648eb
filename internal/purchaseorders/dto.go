package purchaseorders

import (
	"time"

	"github.com/google/uuid"

	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

// Actor identifies the authenticated user performing an operation. The
// name is denormalized onto audit fields so documents survive user churn.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// ItemDTO is one order line as returned to clients.
type ItemDTO struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ProductName string     `json:"product_name"`
	Quantity    int        `json:"quantity"`
	Position    int        `json:"position"`
}

// PurchaseOrderDTO is a full order document as returned to clients.
type PurchaseOrderDTO struct {
	ID              uuid.UUID      `json:"id"`
	Number          string         `json:"number"`
	VendorID        *uuid.UUID     `json:"vendor_id,omitempty"`
	VendorName      string         `json:"vendor_name"`
	Status          enums.POStatus `json:"status"`
	CreatedBy       uuid.UUID      `json:"created_by"`
	CreatedByName   string         `json:"created_by_name"`
	DecidedBy       *uuid.UUID     `json:"decided_by,omitempty"`
	DecidedByName   *string        `json:"decided_by_name,omitempty"`
	DecidedAt       *time.Time     `json:"decided_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	TotalItems      int            `json:"total_items"`
	Items           []ItemDTO      `json:"items"`
	CreatedAt       time.Time      `json:"created_at"`
}

func fromModel(order *models.PurchaseOrder) *PurchaseOrderDTO {
	items := make([]ItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Position:    item.Position,
		})
	}
	return &PurchaseOrderDTO{
		ID:              order.ID,
		Number:          order.Number,
		VendorID:        order.VendorID,
		VendorName:      order.VendorName,
		Status:          order.Status,
		CreatedBy:       order.CreatedBy,
		CreatedByName:   order.CreatedByName,
		DecidedBy:       order.DecidedBy,
		DecidedByName:   order.DecidedByName,
		DecidedAt:       order.DecidedAt,
		RejectionReason: order.RejectionReason,
		TotalItems:      order.TotalItems,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}

// ListInput filters and pages the order list.
type ListInput struct {
	Pagination pagination.Params
	Status     *enums.POStatus
}

// ListResult wraps a page of orders plus the next page cursor.
type ListResult struct {
	Orders     []PurchaseOrderDTO `json:"orders"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// DecisionReport summarizes a bulk approve or reject. Skipped holds refs
// whose order already carried the requested decision; Failed maps a ref to
// the message explaining why its decision did not apply.
type DecisionReport struct {
	Decided []string          `json:"decided"`
	Skipped []string          `json:"skipped"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Document is the export payload handed back by the download and send
// operations, alongside the audit-log append they trigger.
type Document struct {
	Order       PurchaseOrderDTO `json:"order"`
	Location    string           `json:"location"`
	GeneratedAt time.Time        `json:"generated_at"`
}
