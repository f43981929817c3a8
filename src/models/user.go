package models

import "veeniu/src/types"

type User struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	Name           string     `json:"name,omitempty"`
	Email          string     `gorm:"uniqueIndex" json:"email,omitempty"`
	Password       string     `json:"-"`
	Role           types.Role `gorm:"default:'CUSTOMER'" json:"role,omitempty"`
	ProfilePicture *string    `json:"profile_picture,omitempty"`
	ReferralCode   string     `gorm:"uniqueIndex" json:"referral_code,omitempty"`
	ReferredByID   *uint      `json:"-"`

	ReferredBy *User `gorm:"foreignKey:referred_by_id" json:"-"`

	types.Timestamps
}
