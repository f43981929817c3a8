package models

import (
	"time"
	"veeniu/src/types"
)

// Voucher is a flat-amount discount code scoped to a single event and only
// usable before ExpiresAt.
type Voucher struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	EventID   uint      `json:"event_id,omitempty"`
	Code      string    `gorm:"uniqueIndex" json:"code,omitempty"`
	Value     int64     `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	Event Event `json:"event,omitempty"`

	types.Timestamps
}
