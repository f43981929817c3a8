package models

import "veeniu/src/types"

// Ticket stock is decremented only inside a committed reservation and
// incremented only by reject/expire compensation.
type Ticket struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	EventID uint   `json:"event_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Price   int64  `json:"price"`
	Stock   int    `json:"stock"`

	Event Event `json:"event,omitempty"`

	types.Timestamps
}
