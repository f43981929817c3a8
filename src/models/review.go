package models

import "veeniu/src/types"

type Review struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	UserID  uint   `json:"user_id,omitempty"`
	EventID uint   `json:"event_id,omitempty"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`

	User  User  `json:"user,omitempty"`
	Event Event `json:"event,omitempty"`

	types.Timestamps
}
