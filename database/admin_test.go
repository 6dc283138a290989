package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/satoshifaucet/faucetd/database/models"
	"github.com/satoshifaucet/faucetd/money"
	"github.com/stretchr/testify/require"
)

func TestBlockClaim(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name            string
		status          models.ClaimStatus
		refund          bool
		expectedBalance money.Money
	}{
		{"pending with refund", models.ClaimStatusPending, true, 1000},
		{"pending without refund", models.ClaimStatusPending, false, 900},
		{"processing with refund", models.ClaimStatusProcessing, true, 1000},
		{"paid is never refunded", models.ClaimStatusPaid, true, 900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDatabase(t, 1000)
			claim := createClaim(t, db, "LNURL1A", 100)
			setStatus(t, db, claim.ID, tt.status)

			previous, err := db.BlockClaim(ctx, claim.ID, tt.refund)
			require.NoError(t, err)
			require.Equal(t, tt.status, previous)
			requireBalance(t, db, tt.expectedBalance)

			stored, err := db.GetClaim(ctx, claim.ID)
			require.NoError(t, err)
			require.Equal(t, models.ClaimStatusBlocked, stored.Status)
		})
	}

	t.Run("failed claims were already refunded", func(t *testing.T) {
		db := newTestDatabase(t, 1000)
		claim := createClaim(t, db, "LNURL1A", 100)
		_, err := db.MarkClaimFailed(ctx, claim.ID, "boom", true)
		require.NoError(t, err)

		_, err = db.BlockClaim(ctx, claim.ID, true)
		require.NoError(t, err)
		requireBalance(t, db, 1000)
	})

	t.Run("already blocked", func(t *testing.T) {
		db := newTestDatabase(t, 1000)
		claim := createClaim(t, db, "LNURL1A", 100)
		_, err := db.BlockClaim(ctx, claim.ID, true)
		require.NoError(t, err)

		_, err = db.BlockClaim(ctx, claim.ID, true)
		require.ErrorIs(t, err, ErrAlreadyBlocked)
		requireBalance(t, db, 1000)
	})

	t.Run("claim in flight is refunded once", func(t *testing.T) {
		db := newTestDatabase(t, 1000)
		claim := createClaim(t, db, "LNURL1A", 100)
		picked, err := db.ClaimNextPending(ctx)
		require.NoError(t, err)
		require.Equal(t, claim.ID, picked.ID)

		previous, err := db.BlockClaim(ctx, claim.ID, true)
		require.NoError(t, err)
		require.Equal(t, models.ClaimStatusProcessing, previous)
		requireBalance(t, db, 1000)

		// The payout finishing afterwards must not move money again.
		updated, err := db.MarkClaimPaid(ctx, claim.ID, 100, "hash")
		require.NoError(t, err)
		require.False(t, updated)
		finalized, err := db.MarkClaimFailed(ctx, claim.ID, "boom", true)
		require.NoError(t, err)
		require.False(t, finalized)
		requireBalance(t, db, 1000)
	})

	t.Run("unknown claim", func(t *testing.T) {
		db := newTestDatabase(t, 1000)
		_, err := db.BlockClaim(ctx, 7, false)
		require.ErrorIs(t, err, ErrClaimNotFound)
	})
}

func TestFundBalance(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, 0)

	amount, err := db.FundBalance(ctx, 500)
	require.NoError(t, err)
	require.EqualValues(t, 500, amount)

	amount, err = db.FundBalance(ctx, -200)
	require.NoError(t, err)
	require.EqualValues(t, 300, amount)

	_, err = db.FundBalance(ctx, -301)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	requireBalance(t, db, 300)
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, 1000)

	summary, err := db.Summary(ctx)
	require.NoError(t, err)
	require.Nil(t, summary.LastUpdate)
	require.Len(t, summary.ByStatus, len(models.ClaimStatuses))

	var ids []uint64
	for i := range 3 {
		ids = append(ids, createClaim(t, db, fmt.Sprintf("LNURL1%c", 'A'+i), 100).ID)
	}
	_, err = db.MarkClaimFailed(ctx, ids[0], "boom", true)
	require.NoError(t, err)
	createClaim(t, db, "LNURL1A", 100)

	recent, err := db.RecentClaims(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "LNURL1A", recent[0].Destination)
	require.Equal(t, ids[2], recent[1].ID)

	history, err := db.FindClaimsByDestination(ctx, "LNURL1A")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, models.ClaimStatusPending, history[0].Status)
	require.Equal(t, models.ClaimStatusFailed, history[1].Status)

	summary, err = db.Summary(ctx)
	require.NoError(t, err)
	require.NotNil(t, summary.LastUpdate)
	require.EqualValues(t, 700, summary.Balance)
	require.EqualValues(t, 3, summary.ByStatus[models.ClaimStatusPending].Count)
	require.EqualValues(t, 1, summary.ByStatus[models.ClaimStatusFailed].Count)
	require.EqualValues(t, 4, summary.Total().Count)
	require.EqualValues(t, 400, summary.Total().RequestedSats)
}
