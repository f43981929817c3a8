package models

import (
	"time"
	"veeniu/src/types"
)

// Reward is an append-only signed point ledger entry. A user's balance is the
// sum of positive entries; redemptions append negative entries and rollbacks
// append compensating positive ones. Rows are never updated in place.
type Reward struct {
	ID            uint       `gorm:"primarykey" json:"id"`
	UserID        uint       `gorm:"index" json:"user_id,omitempty"`
	Point         int64      `json:"point"`
	TriggeredByID *uint      `json:"triggered_by_id,omitempty"`
	CouponCode    *string    `json:"coupon_code,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`

	TriggeredBy *User `gorm:"foreignKey:triggered_by_id" json:"-"`

	types.Timestamps
}
