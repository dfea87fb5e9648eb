package enums

import "fmt"

// RecordKind names a snapshot-cached record collection on the change feed.
type RecordKind string

const (
	RecordKindProducts       RecordKind = "products"
	RecordKindVendors        RecordKind = "vendors"
	RecordKindPurchaseOrders RecordKind = "purchase_orders"
)

var validRecordKinds = []RecordKind{
	RecordKindProducts,
	RecordKindVendors,
	RecordKindPurchaseOrders,
}

// String implements fmt.Stringer.
func (k RecordKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known RecordKind.
func (k RecordKind) IsValid() bool {
	for _, candidate := range validRecordKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseRecordKind converts raw input into a RecordKind.
func ParseRecordKind(value string) (RecordKind, error) {
	for _, candidate := range validRecordKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid record kind %q", value)
}
