package common

import (
	"fmt"
	"time"
	"veeniu/src/models"
	"veeniu/src/types"

	"errors"

	"gorm.io/gorm"
)

// PointsBalance sums the user's active reward ledger entries. Redemptions are
// negative entries, so the signed sum is the redeemable balance.
func PointsBalance(tx *gorm.DB, userID uint) (int64, error) {
	var balance int64
	err := tx.
		Model(&models.Reward{}).
		Where(&models.Reward{UserID: userID}).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Select("COALESCE(SUM(point), 0)").
		Scan(&balance).
		Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ComputeDiscount resolves the optional voucher and point redemption against a
// candidate order and returns the combined flat discount. A discount that
// would exceed the order total is refused rather than clamped.
func ComputeDiscount(tx *gorm.DB, eventID uint, userID uint, voucherID *uint, usePoints int64, totalAmount int64) (int64, error) {
	var discount int64

	if voucherID != nil {
		var voucher models.Voucher
		err := tx.
			Where(&models.Voucher{ID: *voucherID}).
			First(&voucher).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, types.NewApiError(types.ERR_VALIDATION, "invalid voucher")
			}
			return 0, err
		}
		if voucher.EventID != eventID {
			return 0, types.NewApiError(types.ERR_VALIDATION, "voucher not valid for this event")
		}
		if voucher.ExpiresAt.Before(time.Now()) {
			return 0, types.NewApiError(types.ERR_VALIDATION, "voucher expired")
		}
		discount += voucher.Value
	}

	if usePoints > 0 {
		available, err := PointsBalance(tx, userID)
		if err != nil {
			return 0, err
		}
		if usePoints > available {
			return 0, types.NewApiError(types.ERR_VALIDATION, "not enough points")
		}
		// 1 point = 1 currency unit
		discount += usePoints
	}

	if discount > totalAmount {
		return 0, types.NewApiError(types.ERR_VALIDATION, fmt.Sprintf("discount %d exceeds order total %d", discount, totalAmount))
	}
	return discount, nil
}
