package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/satoshifaucet/faucetd/database/models"
	"github.com/satoshifaucet/faucetd/money"
	"gorm.io/gorm"
)

const MaxRecentClaims = 500

// ReportRepository is the read side of the ledger.
type ReportRepository interface {
	GetClaim(ctx context.Context, id uint64) (*models.Claim, error)
	RecentClaims(ctx context.Context, limit int) ([]models.Claim, error)
	FindClaimsByDestination(ctx context.Context, destination string) ([]models.Claim, error)
	GetBalance(ctx context.Context) (money.Money, error)
	Summary(ctx context.Context) (*Summary, error)
}

type StatusTotals struct {
	Count         int64
	RequestedSats money.Money
	SentSats      money.Money
}

type Summary struct {
	Balance    money.Money
	ByStatus   map[models.ClaimStatus]StatusTotals
	LastUpdate *time.Time
}

// Total adds up the totals of every status.
func (s *Summary) Total() StatusTotals {
	var total StatusTotals
	for _, t := range s.ByStatus {
		total.Count += t.Count
		total.RequestedSats += t.RequestedSats
		total.SentSats += t.SentSats
	}

	return total
}

type statusTotalsRow struct {
	Status        models.ClaimStatus
	Count         int64
	RequestedSats int64
	SentSats      int64
}

func (d *Database) GetClaim(ctx context.Context, id uint64) (*models.Claim, error) {
	var claim models.Claim
	err := d.orm.WithContext(ctx).First(&claim, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrClaimNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &claim, nil
}

func (d *Database) RecentClaims(ctx context.Context, limit int) ([]models.Claim, error) {
	if limit <= 0 || limit > MaxRecentClaims {
		limit = MaxRecentClaims
	}

	var claims []models.Claim
	err := d.orm.WithContext(ctx).Order("created_at desc, id desc").Limit(limit).Find(&claims).Error

	return claims, err
}

func (d *Database) FindClaimsByDestination(ctx context.Context, destination string) ([]models.Claim, error) {
	var claims []models.Claim
	err := d.orm.WithContext(ctx).
		Where("destination = ?", destination).
		Order("created_at desc, id desc").
		Find(&claims).Error

	return claims, err
}

func (d *Database) GetBalance(ctx context.Context) (money.Money, error) {
	var balance models.Balance
	err := d.orm.WithContext(ctx).First(&balance, models.BalanceRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrBalanceMissing
	}
	if err != nil {
		return 0, err
	}

	return balance.AmountSats, nil
}

func (d *Database) Summary(ctx context.Context) (*Summary, error) {
	balance, err := d.GetBalance(ctx)
	if err != nil {
		return nil, err
	}

	var rows []statusTotalsRow
	err = d.orm.WithContext(ctx).
		Model(&models.Claim{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(requested_sats), 0) AS requested_sats, COALESCE(SUM(sent_sats), 0) AS sent_sats").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Balance:  balance,
		ByStatus: make(map[models.ClaimStatus]StatusTotals, len(models.ClaimStatuses)),
	}
	for _, status := range models.ClaimStatuses {
		summary.ByStatus[status] = StatusTotals{}
	}
	for _, row := range rows {
		summary.ByStatus[row.Status] = StatusTotals{
			Count:         row.Count,
			RequestedSats: money.Money(row.RequestedSats),
			SentSats:      money.Money(row.SentSats),
		}
	}

	var last models.Claim
	res := d.orm.WithContext(ctx).Order("updated_at desc").Limit(1).Find(&last)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		summary.LastUpdate = &last.UpdatedAt
	}

	return summary, nil
}
