package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/satoshifaucet/faucetd/database/models"
	"github.com/satoshifaucet/faucetd/money"
	"gorm.io/gorm"
)

var ErrAlreadyBlocked = errors.New("claim already blocked")

// BlockClaim takes a claim out of the payout pipeline. With refund set, the
// reserved amount of a claim that was never paid nor refunded goes back to the
// balance. It returns the status the claim had before.
func (d *Database) BlockClaim(ctx context.Context, id uint64, refund bool) (models.ClaimStatus, error) {
	var previous models.ClaimStatus
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := lockClaim(tx, id)
		if err != nil {
			return err
		}
		previous = claim.Status
		if claim.Status == models.ClaimStatusBlocked {
			return ErrAlreadyBlocked
		}

		// Update writes the new status back into claim, decide on the refund first.
		owed := previous == models.ClaimStatusPending || previous == models.ClaimStatusProcessing
		if err := tx.Model(claim).Update("status", models.ClaimStatusBlocked).Error; err != nil {
			return err
		}

		if refund && owed && claim.RequestedSats > 0 {
			return adjustBalance(tx, int64(claim.RequestedSats))
		}

		return nil
	})

	return previous, err
}

// FundBalance adds delta, which may be negative, to the balance and returns
// the new amount. The balance never goes below zero.
func (d *Database) FundBalance(ctx context.Context, delta int64) (money.Money, error) {
	var amount money.Money
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := lockBalance(tx)
		if err != nil {
			return err
		}
		if delta < 0 && uint64(-delta) > uint64(balance.AmountSats) {
			return fmt.Errorf("%w: %s available", ErrInsufficientBalance, balance.AmountSats)
		}
		if err := adjustBalance(tx, delta); err != nil {
			return err
		}
		amount = money.Money(int64(balance.AmountSats) + delta)

		return nil
	})

	return amount, err
}
