package models

import (
	"time"
	"veeniu/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction is the order aggregate. It is created WAITING_FOR_PAYMENT and
// reaches exactly one of DONE, REJECTED or EXPIRED.
type Transaction struct {
	ID             uint                    `gorm:"primarykey" json:"id"`
	UUID           uuid.UUID               `gorm:"type:uuid;uniqueIndex" json:"uuid"`
	UserID         uint                    `json:"user_id,omitempty"`
	EventID        uint                    `json:"event_id,omitempty"`
	TotalAmount    int64                   `json:"total_amount"`
	DiscountAmount int64                   `json:"discount_amount"`
	FinalAmount    int64                   `json:"final_amount"`
	Status         types.TransactionStatus `gorm:"default:'WAITING_FOR_PAYMENT'" json:"status"`
	ExpiresAt      time.Time               `json:"expires_at"`
	ConfirmedAt    *time.Time              `json:"confirmed_at,omitempty"`
	CanceledAt     *time.Time              `json:"canceled_at,omitempty"`
	PaymentProof   *string                 `json:"payment_proof,omitempty"`
	UsedVoucherID  *uint                   `json:"used_voucher_id,omitempty"`
	UsedPoints     int64                   `json:"used_points,omitempty"`

	User        User                `json:"user,omitempty"`
	Event       Event               `json:"event,omitempty"`
	UsedVoucher *Voucher            `gorm:"foreignKey:used_voucher_id" json:"used_voucher,omitempty"`
	Details     []TransactionDetail `json:"details,omitempty"`

	types.Timestamps
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	return nil
}

// TransactionDetail snapshots the unit price at order time so later price
// edits never change historical orders.
type TransactionDetail struct {
	ID            uint  `gorm:"primarykey" json:"id"`
	TransactionID uint  `json:"transaction_id,omitempty"`
	TicketID      uint  `json:"ticket_id,omitempty"`
	Qty           int   `json:"qty"`
	Price         int64 `json:"price"`

	Ticket Ticket `json:"ticket,omitempty"`

	types.Timestamps
}
