package models

import "time"

// RefSequence allocates display identifiers (V###, P###) per record kind.
// LastValue only moves forward, so a deleted record's display id is never
// reissued.
type RefSequence struct {
	Kind      string    `gorm:"column:kind;primaryKey"`
	LastValue int64     `gorm:"column:last_value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
