package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"veeniu/src/config"
	"veeniu/src/db"
	"veeniu/src/lib"
	"veeniu/src/models"
	"veeniu/src/monitoring"
	"veeniu/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateTransaction converts a cart into a reserved, state-tracked order. The
// whole reservation is one atomic unit: either every line item's stock is
// decremented and the transaction rows exist, or nothing changed.
func CreateTransaction(body *types.CreateTransactionRequestBody, userID uint) (*models.Transaction, error) {
	if len(body.Items) == 0 {
		return nil, types.NewApiError(types.ERR_VALIDATION, "cart must not be empty")
	}
	ticketIds := make([]uint, 0, len(body.Items))
	for _, item := range body.Items {
		ticketIds = append(ticketIds, item.TicketID)
	}

	var txn models.Transaction
	var event models.Event
	gdb := db.GetDb()
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var tickets []models.Ticket
		if err := tx.Where("id IN ?", ticketIds).Find(&tickets).Error; err != nil {
			return err
		}
		byID := make(map[uint]models.Ticket, len(tickets))
		for _, t := range tickets {
			byID[t.ID] = t
		}
		for _, item := range body.Items {
			ticket, ok := byID[item.TicketID]
			if !ok {
				return types.NewApiError(types.ERR_NOT_FOUND, fmt.Sprintf("ticket with id %d not found", item.TicketID))
			}
			if ticket.Stock < item.Qty {
				return types.NewApiError(types.ERR_CONFLICT, "insufficient stock")
			}
		}

		eventID := tickets[0].EventID
		for _, t := range tickets {
			if t.EventID != eventID {
				return types.NewApiError(types.ERR_VALIDATION, "all tickets must belong to the same event")
			}
		}
		if err := tx.Where(&models.Event{ID: eventID}).First(&event).Error; err != nil {
			return err
		}

		var totalAmount int64
		for _, item := range body.Items {
			totalAmount += byID[item.TicketID].Price * int64(item.Qty)
		}

		discountAmount, err := ComputeDiscount(tx, eventID, userID, body.VoucherID, body.UsePoints, totalAmount)
		if err != nil {
			return err
		}

		txn = models.Transaction{
			UserID:         userID,
			EventID:        eventID,
			TotalAmount:    totalAmount,
			DiscountAmount: discountAmount,
			FinalAmount:    totalAmount - discountAmount,
			Status:         types.TRANSACTION_WAITING_FOR_PAYMENT,
			ExpiresAt:      time.Now().Add(config.PaymentWindow()),
			UsedVoucherID:  body.VoucherID,
			UsedPoints:     body.UsePoints,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}

		details := make([]models.TransactionDetail, 0, len(body.Items))
		for _, item := range body.Items {
			details = append(details, models.TransactionDetail{
				TransactionID: txn.ID,
				TicketID:      item.TicketID,
				Qty:           item.Qty,
				Price:         byID[item.TicketID].Price,
			})
		}
		if err := tx.Create(&details).Error; err != nil {
			return err
		}

		// Guarded decrement: the stock predicate is evaluated against the
		// same row the update hits, so two concurrent buyers can never both
		// pass on the last seats.
		for _, item := range body.Items {
			res := tx.
				Model(&models.Ticket{}).
				Where("id = ? AND stock >= ?", item.TicketID, item.Qty).
				Update("stock", gorm.Expr("stock - ?", item.Qty))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				monitoring.ReservationConflicts.Inc()
				return types.NewApiError(types.ERR_CONFLICT, "insufficient stock")
			}
		}

		if body.UsePoints > 0 {
			redemption := models.Reward{
				UserID:        userID,
				Point:         -body.UsePoints,
				TriggeredByID: &userID,
			}
			if err := tx.Create(&redemption).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.TransactionsCreated.Inc()

	// Best-effort side effects: neither a failed mail nor a failed schedule
	// rolls back the committed reservation.
	go func() {
		input := &lib.SendMailInput{
			From:     "no-reply@veeniu.com",
			FromName: "Veeniu",
			To:       []string{body.Email},
			Subject:  fmt.Sprintf("Complete your payment for %s", event.Title),
			Body: fmt.Sprintf("Hi! Upload your payment proof before %s at https://veeniu.com/transaction/%s/upload-proof",
				txn.ExpiresAt.Format(config.TIME_PARSE_FORMAT), txn.UUID.String()),
		}
		if err := lib.SendMail(input); err != nil {
			log.Printf("Error sending payment reminder for transaction %s: %s\n", txn.UUID.String(), err.Error())
		}
	}()
	if _, err := ScheduleTransactionExpiry(txn.UUID, txn.ExpiresAt); err != nil {
		log.Printf("Error scheduling expiry for transaction %s: %s\n", txn.UUID.String(), err.Error())
	}

	return &txn, nil
}

// GetTransactionByUUID resolves a transaction by its public reference, with
// event and line items preloaded.
func GetTransactionByUUID(uuidStr string) (*models.Transaction, error) {
	ref, err := uuid.Parse(uuidStr)
	if err != nil {
		return nil, types.NewApiError(types.ERR_VALIDATION, "invalid transaction uuid")
	}
	gdb := db.GetDb()
	var txn models.Transaction
	err = gdb.
		Where("uuid = ?", ref).
		Preload("Event").
		Preload("Details").
		First(&txn).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewApiError(types.ERR_NOT_FOUND, "transaction not found")
		}
		return nil, err
	}
	return &txn, nil
}

// UploadPaymentProof stores the buyer's proof image and moves the transaction
// to WAITING_FOR_CONFIRMATION. Re-uploads before the organizer decides are
// allowed and replace the previous artifact.
func UploadPaymentProof(uuidStr string, file []byte, contentType string, requesterID uint) (*models.Transaction, error) {
	txn, err := GetTransactionByUUID(uuidStr)
	if err != nil {
		return nil, err
	}
	if txn.UserID != requesterID {
		return nil, types.NewApiError(types.ERR_FORBIDDEN, "only the buyer may upload payment proof")
	}
	if txn.Status != types.TRANSACTION_WAITING_FOR_PAYMENT && txn.Status != types.TRANSACTION_WAITING_FOR_CONFIRMATION {
		return nil, types.NewApiError(types.ERR_CONFLICT, "invalid transaction status")
	}

	store := lib.GetArtifactStore()
	ctx := context.Background()
	if txn.PaymentProof != nil {
		if err := store.Remove(ctx, *txn.PaymentProof); err != nil {
			log.Printf("Error removing previous payment proof for transaction %s: %s\n", txn.UUID.String(), err.Error())
			return nil, types.NewApiError(types.ERR_INTERNAL, "could not replace previous payment proof")
		}
	}
	key := fmt.Sprintf("payment-proofs/%s-%d", txn.UUID.String(), time.Now().UnixNano())
	ref, err := store.Store(ctx, key, file, contentType)
	if err != nil {
		return nil, types.NewApiError(types.ERR_INTERNAL, "could not store payment proof")
	}

	gdb := db.GetDb()
	res := gdb.
		Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", txn.ID, []types.TransactionStatus{
			types.TRANSACTION_WAITING_FOR_PAYMENT,
			types.TRANSACTION_WAITING_FOR_CONFIRMATION,
		}).
		Updates(map[string]any{
			"status":        types.TRANSACTION_WAITING_FOR_CONFIRMATION,
			"payment_proof": ref,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// a decision or expiry landed while the upload was in flight
		if err := store.Remove(ctx, ref); err != nil {
			log.Printf("Error removing orphaned payment proof %s: %s\n", ref, err.Error())
		}
		return nil, types.NewApiError(types.ERR_CONFLICT, "invalid transaction status")
	}

	txn.Status = types.TRANSACTION_WAITING_FOR_CONFIRMATION
	txn.PaymentProof = &ref
	return txn, nil
}

func organizerOwns(txn *models.Transaction, organizerID uint) error {
	if txn.Event.OrganizerID != organizerID {
		return types.NewApiError(types.ERR_FORBIDDEN, "transaction does not belong to your event")
	}
	return nil
}

// AcceptTransaction finalizes a paid order: status DONE and the per-(event,
// buyer) attendee aggregate is upserted, atomically.
func AcceptTransaction(uuidStr string, organizerID uint) error {
	txn, err := GetTransactionByUUID(uuidStr)
	if err != nil {
		return err
	}
	if err := organizerOwns(txn, organizerID); err != nil {
		return err
	}

	var ticketCount int
	for _, d := range txn.Details {
		ticketCount += d.Qty
	}

	gdb := db.GetDb()
	err = gdb.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.
			Model(&models.Transaction{}).
			Where("id = ? AND status = ?", txn.ID, types.TRANSACTION_WAITING_FOR_CONFIRMATION).
			Updates(map[string]any{
				"status":       types.TRANSACTION_DONE,
				"confirmed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.NewApiError(types.ERR_CONFLICT, "invalid transaction status")
		}

		attendee := models.EventAttendee{
			EventID:     txn.EventID,
			UserID:      txn.UserID,
			TicketCount: ticketCount,
			TotalPaid:   txn.FinalAmount,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"ticket_count": gorm.Expr("ticket_count + ?", ticketCount),
				"total_paid":   gorm.Expr("total_paid + ?", txn.FinalAmount),
			}),
		}).Create(&attendee).Error
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	monitoring.TransactionsConfirmed.Inc()
	notifyDecision(txn, "accepted")
	return nil
}

// RejectTransaction unwinds a pending order: stock restored, redeemed points
// compensated with a positive ledger entry, proof artifact removed.
func RejectTransaction(uuidStr string, organizerID uint) error {
	txn, err := GetTransactionByUUID(uuidStr)
	if err != nil {
		return err
	}
	if err := organizerOwns(txn, organizerID); err != nil {
		return err
	}

	gdb := db.GetDb()
	err = gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Transaction{}).
			Where("id = ? AND status = ?", txn.ID, types.TRANSACTION_WAITING_FOR_CONFIRMATION).
			Updates(map[string]any{
				"status":        types.TRANSACTION_REJECTED,
				"canceled_at":   time.Now(),
				"payment_proof": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.NewApiError(types.ERR_CONFLICT, "invalid transaction status")
		}
		return compensate(tx, txn)
	})
	if err != nil {
		return err
	}

	monitoring.TransactionsRejected.Inc()
	removeProofArtifact(txn)
	notifyDecision(txn, "rejected")
	return nil
}

// ExpireTransaction is invoked by the expiry scheduler. It re-checks status
// inside the atomic unit, so duplicate or late firings against a finalized
// transaction are a successful no-op.
func ExpireTransaction(uuidStr string) error {
	txn, err := GetTransactionByUUID(uuidStr)
	if err != nil {
		return err
	}
	if txn.Status.Terminal() {
		return nil
	}

	gdb := db.GetDb()
	var expired bool
	err = gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Transaction{}).
			Where("id = ? AND status IN ?", txn.ID, []types.TransactionStatus{
				types.TRANSACTION_WAITING_FOR_PAYMENT,
				types.TRANSACTION_WAITING_FOR_CONFIRMATION,
			}).
			Updates(map[string]any{
				"status":        types.TRANSACTION_EXPIRED,
				"canceled_at":   time.Now(),
				"payment_proof": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// finalized between the read and the update, nothing to unwind
			return nil
		}
		expired = true
		return compensate(tx, txn)
	})
	if err != nil {
		return err
	}
	if !expired {
		return nil
	}

	monitoring.TransactionsExpired.Inc()
	removeProofArtifact(txn)
	log.Printf("Transaction %s expired, reservation released\n", txn.UUID.String())
	return nil
}

// compensate restores every side effect of the reservation: stock per line
// item and a positive ledger entry for redeemed points. Runs inside the same
// atomic unit as the status transition.
func compensate(tx *gorm.DB, txn *models.Transaction) error {
	for _, d := range txn.Details {
		err := tx.
			Model(&models.Ticket{}).
			Where("id = ?", d.TicketID).
			Update("stock", gorm.Expr("stock + ?", d.Qty)).
			Error
		if err != nil {
			return err
		}
	}
	if txn.UsedPoints > 0 {
		refund := models.Reward{
			UserID:        txn.UserID,
			Point:         txn.UsedPoints,
			TriggeredByID: &txn.UserID,
		}
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}
	}
	return nil
}

// removeProofArtifact deletes the stored payment proof outside any database
// transaction. Failures are logged, the row no longer references the artifact.
func removeProofArtifact(txn *models.Transaction) {
	if txn.PaymentProof == nil {
		return
	}
	if err := lib.GetArtifactStore().Remove(context.Background(), *txn.PaymentProof); err != nil {
		log.Printf("Error removing payment proof for transaction %s: %s\n", txn.UUID.String(), err.Error())
	}
}

func notifyDecision(txn *models.Transaction, decision string) {
	go func() {
		gdb := db.GetDb()
		var user models.User
		if err := gdb.Where(&models.User{ID: txn.UserID}).First(&user).Error; err != nil {
			log.Printf("Error loading buyer for transaction %s: %s\n", txn.UUID.String(), err.Error())
			return
		}
		input := &lib.SendMailInput{
			From:     "no-reply@veeniu.com",
			FromName: "Veeniu",
			To:       []string{user.Email},
			Subject:  fmt.Sprintf("Your order for %s was %s", txn.Event.Title, decision),
			Body:     fmt.Sprintf("Hi %s, your transaction %s has been %s.", user.Name, txn.UUID.String(), decision),
		}
		if err := lib.SendMail(input); err != nil {
			log.Printf("Error sending %s mail for transaction %s: %s\n", decision, txn.UUID.String(), err.Error())
		}
	}()
}
