package models

import "veeniu/src/types"

// EventAttendee is a per-(event, user) projection updated only when a
// transaction is confirmed.
type EventAttendee struct {
	ID          uint  `gorm:"primarykey" json:"id"`
	EventID     uint  `gorm:"uniqueIndex:idx_event_user" json:"event_id,omitempty"`
	UserID      uint  `gorm:"uniqueIndex:idx_event_user" json:"user_id,omitempty"`
	TicketCount int   `json:"ticket_count"`
	TotalPaid   int64 `json:"total_paid"`

	Event Event `json:"event,omitempty"`
	User  User  `json:"user,omitempty"`

	types.Timestamps
}
