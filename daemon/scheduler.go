package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/satoshifaucet/faucetd/database"
	"github.com/satoshifaucet/faucetd/database/models"
	"github.com/satoshifaucet/faucetd/lightning"
	"github.com/satoshifaucet/faucetd/lnurl"
	"github.com/satoshifaucet/faucetd/lnurlpay"
	"github.com/satoshifaucet/faucetd/money"
	"github.com/satoshifaucet/faucetd/settlement"
	log "github.com/sirupsen/logrus"
)

// Failure reasons longer than this are cut before being stored.
const maxFailureReasonLength = 500

var errInternal = errors.New("internal error")

type Config struct {
	RewardSats           money.Money
	BatchSize            int
	RefundOnFailure      bool
	StaleProcessingAfter time.Duration
	VerifyInvoiceAmount  bool
	Network              lightning.Network
}

type Outcome string

const (
	OutcomeNone    Outcome = "none"
	OutcomePaid    Outcome = "paid"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

type RunResult struct {
	Processed int
	Paid      int
	Failed    int
	Skipped   int
	Requeued  int64
}

// PayoutScheduler pays pending claims one at a time.
type PayoutScheduler struct {
	repository  database.ClaimRepository
	lnurlClient lnurlpay.ClientInterface
	settler     settlement.Settler
	config      Config

	resolve       func(string) (*url.URL, error)
	verifyInvoice func(string, lightning.Network, money.MilliSats) error
}

func NewPayoutScheduler(repository database.ClaimRepository, lnurlClient lnurlpay.ClientInterface, settler settlement.Settler, config Config) *PayoutScheduler {
	if config.BatchSize < 1 {
		config.BatchSize = 1
	}

	return &PayoutScheduler{
		repository:    repository,
		lnurlClient:   lnurlClient,
		settler:       settler,
		config:        config,
		resolve:       lnurl.Resolve,
		verifyInvoice: lightning.VerifyInvoiceAmount,
	}
}

// RunBatch processes up to BatchSize claims and stops early once no pending
// claim is left. Cancelling ctx stops the batch between claims; the claim in
// flight always finishes. Only ledger errors are returned.
func (s *PayoutScheduler) RunBatch(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	if s.config.StaleProcessingAfter > 0 {
		n, err := s.repository.RequeueStaleClaims(ctx, s.config.StaleProcessingAfter)
		if err != nil {
			return result, fmt.Errorf("failed to requeue stale claims: %w", err)
		}
		if n > 0 {
			log.Warnf("requeued %d claims stuck in processing for more than %s", n, s.config.StaleProcessingAfter)
		}
		result.Requeued = n
	}

	for range s.config.BatchSize {
		if ctx.Err() != nil {
			log.Info("run interrupted")

			break
		}

		outcome, err := s.ProcessNext(context.WithoutCancel(ctx))
		if err != nil {
			return result, err
		}
		if outcome == OutcomeNone {
			break
		}

		result.Processed++
		switch outcome {
		case OutcomePaid:
			result.Paid++
		case OutcomeFailed:
			result.Failed++
		case OutcomeSkipped:
			result.Skipped++
		}
	}

	return result, nil
}

// ProcessNext takes the oldest pending claim and drives it to paid or failed.
func (s *PayoutScheduler) ProcessNext(ctx context.Context) (Outcome, error) {
	claim, err := s.repository.ClaimNextPending(ctx)
	if errors.Is(err, database.ErrNoPendingClaim) {
		log.Info("claimed none")

		return OutcomeNone, nil
	}
	if err != nil {
		return OutcomeNone, fmt.Errorf("failed to claim next pending claim: %w", err)
	}

	logger := log.WithField("id", claim.ID)
	logger.Debug("processing claim")

	reference, payErr := s.payout(ctx, claim)
	if payErr == nil {
		updated, err := s.repository.MarkClaimPaid(ctx, claim.ID, s.config.RewardSats, reference)
		if err != nil {
			return OutcomeNone, fmt.Errorf("failed to mark claim %d paid (ref=%s): %w", claim.ID, reference, err)
		}
		if !updated {
			logger.Warnf("claim %d was paid but is no longer processing, left as is ref=%s", claim.ID, reference)

			return OutcomeSkipped, nil
		}
		logger.WithField("ref", reference).Infof("claim %d paid %d ref=%s", claim.ID, uint64(s.config.RewardSats), reference)

		return OutcomePaid, nil
	}

	reason := failureReason(payErr)
	finalized, err := s.repository.MarkClaimFailed(ctx, claim.ID, reason, s.config.RefundOnFailure)
	if err != nil {
		return OutcomeNone, fmt.Errorf("failed to mark claim %d failed: %w", claim.ID, err)
	}
	if !finalized {
		logger.Warnf("claim %d failed but is no longer processing, left as is reason=%s", claim.ID, reason)

		return OutcomeSkipped, nil
	}
	logger.WithError(payErr).Infof("claim %d failed reason=%s", claim.ID, reason)

	return OutcomeFailed, nil
}

// payout resolves the claim destination, negotiates an invoice and pays it.
// A panic anywhere in there fails the claim instead of the run.
func (s *PayoutScheduler) payout(ctx context.Context, claim *models.Claim) (reference string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("id", claim.ID).Errorf("panic while processing claim: %v\n%s", r, debug.Stack())
			reference, err = "", errInternal
		}
	}()

	target, err := s.resolve(claim.Destination)
	if err != nil {
		return "", err
	}

	metadata, err := s.lnurlClient.FetchPayMetadata(ctx, target)
	if err != nil {
		return "", err
	}

	amount := s.config.RewardSats.ToMilliSats()
	bolt11, err := s.lnurlClient.RequestInvoice(ctx, metadata, amount)
	if err != nil {
		return "", err
	}

	if s.config.VerifyInvoiceAmount {
		if err := s.verifyInvoice(bolt11, s.config.Network, amount); err != nil {
			return "", err
		}
	}

	payment, err := s.settler.Pay(ctx, bolt11)
	if err != nil {
		return "", err
	}

	return payment.Reference, nil
}

func failureReason(err error) string {
	if errors.Is(err, errInternal) {
		return errInternal.Error()
	}

	reason := err.Error()
	if len(reason) > maxFailureReasonLength {
		reason = reason[:maxFailureReasonLength]
	}

	return reason
}
