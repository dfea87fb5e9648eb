package enums

import "fmt"

// POStatus is the purchase-order lifecycle state. Transitions run forward
// only: created -> approved or created -> rejected, both terminal.
type POStatus string

const (
	POStatusCreated  POStatus = "created"
	POStatusApproved POStatus = "approved"
	POStatusRejected POStatus = "rejected"
)

var validPOStatuses = []POStatus{
	POStatusCreated,
	POStatusApproved,
	POStatusRejected,
}

// String implements fmt.Stringer.
func (s POStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known POStatus.
func (s POStatus) IsValid() bool {
	for _, candidate := range validPOStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s POStatus) IsTerminal() bool {
	return s == POStatusApproved || s == POStatusRejected
}

// ParsePOStatus converts raw input into a POStatus.
func ParsePOStatus(value string) (POStatus, error) {
	for _, candidate := range validPOStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
