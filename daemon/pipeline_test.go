package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/satoshifaucet/faucetd/database"
	"github.com/satoshifaucet/faucetd/database/models"
	"github.com/satoshifaucet/faucetd/intake"
	"github.com/satoshifaucet/faucetd/lightning"
	"github.com/satoshifaucet/faucetd/lnurl"
	"github.com/satoshifaucet/faucetd/lnurlpay"
	"github.com/satoshifaucet/faucetd/money"
	"github.com/satoshifaucet/faucetd/settlement"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "admin-key"

// fakeWallet serves LNURL-pay endpoints and an LNbits payments API from a
// single TLS server.
type fakeWallet struct {
	server       *httptest.Server
	paymentCalls atomic.Int32
	// Status LNbits answers with, 201 when zero
	paymentStatus atomic.Int32
}

func newFakeWallet(t *testing.T) *fakeWallet {
	t.Helper()

	wallet := &fakeWallet{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /lnurlp/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		maxSendable := 1_000_000
		if name == "tiny" {
			maxSendable = 50_000
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"tag":         "payRequest",
			"callback":    wallet.server.URL + "/cb/" + name,
			"minSendable": 1000,
			"maxSendable": maxSendable,
			"metadata":    `[["text/plain","faucet"]]`,
		})
	})

	mux.HandleFunc("GET /cb/{name}", func(w http.ResponseWriter, r *http.Request) {
		amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ERROR", "reason": "bad amount"})

			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"pr":     lightning.CreateMockInvoice(t, money.MilliSats(amount)),
			"routes": []any{},
		})
	})

	mux.HandleFunc("POST /api/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		wallet.paymentCalls.Add(1)
		if r.Header.Get("X-Api-Key") != testAPIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid key"})

			return
		}
		if status := int(wallet.paymentStatus.Load()); status != 0 {
			writeJSON(w, status, map[string]any{"detail": "Insufficient balance."})

			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"payment_hash": "d78a8ba8b6251027f37fd6febff0315f2d45be831ba313fb23c6e03a2abe3ca5",
			"checking_id":  "internal_1",
		})
	})

	wallet.server = httptest.NewTLSServer(mux)
	t.Cleanup(wallet.server.Close)

	return wallet
}

func (w *fakeWallet) destination(t *testing.T, name string) string {
	t.Helper()

	encoded, err := lnurl.Encode(w.server.URL + "/lnurlp/" + name)
	require.NoError(t, err)

	return encoded
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type pipeline struct {
	db        *database.Database
	wallet    *fakeWallet
	intake    *intake.Service
	scheduler *PayoutScheduler
}

func newPipeline(t *testing.T, funding int64, settler settlement.Settler) *pipeline {
	t.Helper()
	ctx := context.Background()

	db, closeDB, err := database.NewSQLiteDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, closeDB())
	})
	require.NoError(t, db.MigrateDatabase())
	_, err = db.FundBalance(ctx, funding)
	require.NoError(t, err)

	wallet := newFakeWallet(t)
	if settler == nil {
		settler = settlement.NewLNbits(wallet.server.URL, testAPIKey, settlement.WithLNbitsHTTPClient(wallet.server.Client()))
	}
	client := lnurlpay.NewClient(lnurlpay.WithHTTPClient(wallet.server.Client()))

	return &pipeline{
		db:     db,
		wallet: wallet,
		intake: intake.NewService(db, 100),
		scheduler: NewPayoutScheduler(db, client, settler, Config{
			RewardSats:          100,
			BatchSize:           10,
			RefundOnFailure:     true,
			VerifyInvoiceAmount: true,
			Network:             lightning.Regtest,
		}),
	}
}

func (p *pipeline) submit(t *testing.T, name string) *models.Claim {
	t.Helper()

	claim, err := p.intake.Submit(context.Background(), intake.Request{
		Destination: p.wallet.destination(t, name),
		IPAddress:   "198.51.100.1",
	})
	require.NoError(t, err)

	return claim
}

func (p *pipeline) requireClaim(t *testing.T, id uint64, status models.ClaimStatus) *models.Claim {
	t.Helper()

	claim, err := p.db.GetClaim(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, status, claim.Status)

	return claim
}

func (p *pipeline) requireBalance(t *testing.T, expected money.Money) {
	t.Helper()

	balance, err := p.db.GetBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, expected, balance)
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("pays a claim", func(t *testing.T) {
		p := newPipeline(t, 1000, nil)
		claim := p.submit(t, "alice")
		p.requireBalance(t, 900)

		result, err := p.scheduler.RunBatch(ctx)
		require.NoError(t, err)
		require.Equal(t, &RunResult{Processed: 1, Paid: 1}, result)

		paid := p.requireClaim(t, claim.ID, models.ClaimStatusPaid)
		require.EqualValues(t, 100, paid.SentSats)
		require.NotNil(t, paid.SettlementReference)
		require.Equal(t, "d78a8ba8b6251027f37fd6febff0315f2d45be831ba313fb23c6e03a2abe3ca5", *paid.SettlementReference)
		require.Nil(t, paid.FailureReason)
		p.requireBalance(t, 900)
		require.EqualValues(t, 1, p.wallet.paymentCalls.Load())

		result, err = p.scheduler.RunBatch(ctx)
		require.NoError(t, err)
		require.Zero(t, result.Processed)
		require.EqualValues(t, 1, p.wallet.paymentCalls.Load())
	})

	t.Run("amount out of range is refunded", func(t *testing.T) {
		p := newPipeline(t, 1000, nil)
		claim := p.submit(t, "tiny")

		result, err := p.scheduler.RunBatch(ctx)
		require.NoError(t, err)
		require.Equal(t, &RunResult{Processed: 1, Failed: 1}, result)

		failed := p.requireClaim(t, claim.ID, models.ClaimStatusFailed)
		require.NotNil(t, failed.FailureReason)
		require.Contains(t, *failed.FailureReason, "amount out of range")
		require.Zero(t, failed.SentSats)
		p.requireBalance(t, 1000)
		require.Zero(t, p.wallet.paymentCalls.Load())
	})

	t.Run("rejected payment is refunded once", func(t *testing.T) {
		p := newPipeline(t, 1000, nil)
		p.wallet.paymentStatus.Store(http.StatusBadRequest)
		claim := p.submit(t, "alice")

		result, err := p.scheduler.RunBatch(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, result.Failed)

		failed := p.requireClaim(t, claim.ID, models.ClaimStatusFailed)
		require.Contains(t, *failed.FailureReason, "LNbits HTTP 400")
		p.requireBalance(t, 1000)

		_, err = p.db.MarkClaimFailed(ctx, claim.ID, "again", true)
		require.NoError(t, err)
		result, err = p.scheduler.RunBatch(ctx)
		require.NoError(t, err)
		require.Zero(t, result.Processed)
		p.requireBalance(t, 1000)
	})

	t.Run("unreachable settlement backend is refunded", func(t *testing.T) {
		settler := settlement.NewLNbits("https://127.0.0.1:1", testAPIKey)
		p := newPipeline(t, 1000, settler)
		claim := p.submit(t, "alice")

		result, err := p.scheduler.RunBatch(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, result.Failed)

		failed := p.requireClaim(t, claim.ID, models.ClaimStatusFailed)
		require.Contains(t, *failed.FailureReason, settlement.ErrTransport.Error())
		p.requireBalance(t, 1000)
	})

	t.Run("unconfigured settlement fails the claim", func(t *testing.T) {
		p := newPipeline(t, 1000, settlement.Unconfigured{})
		claim := p.submit(t, "alice")

		_, err := p.scheduler.RunBatch(ctx)
		require.NoError(t, err)

		failed := p.requireClaim(t, claim.ID, models.ClaimStatusFailed)
		require.Equal(t, settlement.ErrNotConfigured.Error(), *failed.FailureReason)
		p.requireBalance(t, 1000)
	})

	t.Run("blocked claims are left alone", func(t *testing.T) {
		p := newPipeline(t, 1000, nil)
		claim := p.submit(t, "alice")
		_, err := p.db.BlockClaim(ctx, claim.ID, false)
		require.NoError(t, err)

		result, err := p.scheduler.RunBatch(ctx)
		require.NoError(t, err)
		require.Zero(t, result.Processed)

		p.requireClaim(t, claim.ID, models.ClaimStatusBlocked)
		p.requireBalance(t, 900)
		require.Zero(t, p.wallet.paymentCalls.Load())
	})

	t.Run("balance is conserved", func(t *testing.T) {
		p := newPipeline(t, 1000, nil)
		alice := p.submit(t, "alice")
		bob := p.submit(t, "bob")
		tiny := p.submit(t, "tiny")
		p.requireBalance(t, 700)

		result, err := p.scheduler.RunBatch(ctx)
		require.NoError(t, err)
		require.Equal(t, &RunResult{Processed: 3, Paid: 2, Failed: 1}, result)

		p.requireClaim(t, alice.ID, models.ClaimStatusPaid)
		p.requireClaim(t, bob.ID, models.ClaimStatusPaid)
		p.requireClaim(t, tiny.ID, models.ClaimStatusFailed)

		summary, err := p.db.Summary(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 800, summary.Balance)
		require.EqualValues(t, 1000, uint64(summary.Balance)+uint64(summary.Total().SentSats))
	})
}
