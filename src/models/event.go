package models

import (
	"time"
	"veeniu/src/types"
)

type Event struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrganizerID uint      `json:"organizer_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Slug        string    `gorm:"index" json:"slug,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Location    string    `json:"location,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	StartsAt    time.Time `json:"starts_at,omitempty"`
	EndsAt      time.Time `json:"ends_at,omitempty"`

	Organizer User      `gorm:"foreignKey:organizer_id" json:"organizer,omitempty"`
	Tickets   []Ticket  `json:"tickets,omitempty"`
	Vouchers  []Voucher `json:"vouchers,omitempty"`

	types.Timestamps
}
