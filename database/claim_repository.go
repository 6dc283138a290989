package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/satoshifaucet/faucetd/database/models"
	"github.com/satoshifaucet/faucetd/money"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoPendingClaim      = errors.New("no pending claim")
	ErrClaimNotFound       = errors.New("claim not found")
	ErrDuplicateClaim      = errors.New("destination already has an active claim")
	ErrInsufficientBalance = errors.New("insufficient faucet balance")
	ErrBalanceMissing      = errors.New("balance row missing, run the migrations")
)

// Statuses that prevent a destination from being claimed again.
var activeStatuses = []models.ClaimStatus{
	models.ClaimStatusPending,
	models.ClaimStatusProcessing,
	models.ClaimStatusPaid,
	models.ClaimStatusBlocked,
}

// ClaimRepository holds the state transitions the payout scheduler drives.
//
//go:generate go tool mockgen -destination=mock.go -package=database . ClaimRepository,IntakeRepository,ReportRepository
type ClaimRepository interface {
	ClaimNextPending(ctx context.Context) (*models.Claim, error)
	MarkClaimPaid(ctx context.Context, id uint64, sent money.Money, reference string) (bool, error)
	MarkClaimFailed(ctx context.Context, id uint64, reason string, refund bool) (bool, error)
	RequeueStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error)
}

type IntakeRepository interface {
	CreateClaim(ctx context.Context, claim *models.Claim) error
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// ClaimNextPending moves the oldest pending claim to processing and returns
// it. Claims locked by a concurrent worker are skipped.
func (d *Database) ClaimNextPending(ctx context.Context) (*models.Claim, error) {
	var claim models.Claim
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", models.ClaimStatusPending).
			Order("created_at, id").
			Limit(1).
			Find(&claim)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoPendingClaim
		}

		return tx.Model(&claim).Updates(map[string]any{
			"status":         models.ClaimStatusProcessing,
			"failure_reason": nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	claim.Status = models.ClaimStatusProcessing
	claim.FailureReason = nil

	return &claim, nil
}

// MarkClaimPaid records a successful settlement. It only applies to claims
// still processing and reports whether the claim was updated.
func (d *Database) MarkClaimPaid(ctx context.Context, id uint64, sent money.Money, reference string) (bool, error) {
	var ref *string
	if reference != "" {
		ref = &reference
	}

	updated := false
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := lockClaim(tx, id)
		if err != nil {
			return err
		}
		if claim.Status != models.ClaimStatusProcessing {
			return nil
		}

		err = tx.Model(claim).Updates(map[string]any{
			"status":               models.ClaimStatusPaid,
			"sent_sats":            sent,
			"settlement_reference": ref,
			"failure_reason":       nil,
		}).Error
		if err != nil {
			return err
		}
		updated = true

		return nil
	})

	return updated, err
}

// MarkClaimFailed finalizes a claim as failed and, when refund is set, gives
// its requested amount back to the balance in the same transaction. Claims
// already paid, failed or blocked are left untouched, which makes repeated
// calls harmless. It reports whether the claim was finalized by this call.
func (d *Database) MarkClaimFailed(ctx context.Context, id uint64, reason string, refund bool) (bool, error) {
	finalized := false
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := lockClaim(tx, id)
		if err != nil {
			return err
		}
		if claim.Status.IsFinal() {
			return nil
		}

		err = tx.Model(claim).Updates(map[string]any{
			"status":               models.ClaimStatusFailed,
			"sent_sats":            money.Money(0),
			"settlement_reference": nil,
			"failure_reason":       reason,
		}).Error
		if err != nil {
			return err
		}

		if refund && claim.RequestedSats > 0 {
			if err := adjustBalance(tx, int64(claim.RequestedSats)); err != nil {
				return err
			}
		}
		finalized = true

		return nil
	})

	return finalized, err
}

// RequeueStaleClaims gives claims stuck in processing for longer than
// olderThan back to the queue.
func (d *Database) RequeueStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error) {
	res := d.orm.WithContext(ctx).
		Model(&models.Claim{}).
		Where("status = ? AND updated_at < ?", models.ClaimStatusProcessing, time.Now().Add(-olderThan)).
		Updates(map[string]any{
			"status":         models.ClaimStatusPending,
			"failure_reason": nil,
		})

	return res.RowsAffected, res.Error
}

// CreateClaim reserves the claim amount from the balance and stores the claim
// as pending. The balance row lock serializes intake, so the duplicate check
// cannot race.
func (d *Database) CreateClaim(ctx context.Context, claim *models.Claim) error {
	return d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := lockBalance(tx)
		if err != nil {
			return err
		}

		var active int64
		err = tx.Model(&models.Claim{}).
			Where("destination = ? AND status IN ?", claim.Destination, activeStatuses).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrDuplicateClaim
		}

		if balance.AmountSats < claim.RequestedSats {
			return fmt.Errorf("%w: %s available, %s requested", ErrInsufficientBalance, balance.AmountSats, claim.RequestedSats)
		}
		if err := adjustBalance(tx, -int64(claim.RequestedSats)); err != nil {
			return err
		}

		claim.ID = 0
		claim.Status = models.ClaimStatusPending
		claim.SentSats = 0
		claim.SettlementReference = nil
		claim.FailureReason = nil

		return tx.Create(claim).Error
	})
}

func lockClaim(tx *gorm.DB, id uint64) (*models.Claim, error) {
	var claim models.Claim
	err := tx.Clauses(forUpdate()).First(&claim, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrClaimNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &claim, nil
}

func lockBalance(tx *gorm.DB) (*models.Balance, error) {
	var balance models.Balance
	err := tx.Clauses(forUpdate()).First(&balance, models.BalanceRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBalanceMissing
	}
	if err != nil {
		return nil, err
	}

	return &balance, nil
}

// adjustBalance adds delta to the balance row. The row must already be locked
// by tx when delta is negative.
func adjustBalance(tx *gorm.DB, delta int64) error {
	res := tx.Model(&models.Balance{}).
		Where("id = ?", models.BalanceRowID).
		Update("amount_sats", gorm.Expr("amount_sats + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBalanceMissing
	}

	return nil
}
