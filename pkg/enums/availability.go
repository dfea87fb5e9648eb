package enums

import "fmt"

// AvailabilityStatus tracks a product's participation in PO creation.
// A product moves available -> queued -> po_created; the only reverse edge
// is queued -> available (explicit dequeue).
type AvailabilityStatus string

const (
	AvailabilityStatusAvailable AvailabilityStatus = "available"
	AvailabilityStatusQueued    AvailabilityStatus = "queued"
	AvailabilityStatusPOCreated AvailabilityStatus = "po_created"
)

var validAvailabilityStatuses = []AvailabilityStatus{
	AvailabilityStatusAvailable,
	AvailabilityStatusQueued,
	AvailabilityStatusPOCreated,
}

// String implements fmt.Stringer.
func (s AvailabilityStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AvailabilityStatus.
func (s AvailabilityStatus) IsValid() bool {
	for _, candidate := range validAvailabilityStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Selectable reports whether a product in this state may be offered for
// queueing; keeps the include_in_create_po flag derivable.
func (s AvailabilityStatus) Selectable() bool {
	return s == AvailabilityStatusAvailable
}

// ParseAvailabilityStatus converts raw input into an AvailabilityStatus.
func ParseAvailabilityStatus(value string) (AvailabilityStatus, error) {
	for _, candidate := range validAvailabilityStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid availability status %q", value)
}
