// Package daemon runs the faucet payout pipeline.
package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultMonitoringInterval = time.Minute

// Server is served next to the scheduler while the daemon runs.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// Start runs a batch on every tick until ctx is cancelled. Failed batches are
// logged and retried on the next tick.
func Start(ctx context.Context, scheduler *PayoutScheduler, interval time.Duration, server Server) error {
	log.Info("Starting faucetd")

	if interval <= 0 {
		interval = DefaultMonitoringInterval
	}

	if server != nil {
		go func() {
			err := server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("couldn't start server: %v", err)
			}
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := scheduler.RunBatch(ctx)
		if err != nil {
			log.WithError(err).Error("payout run aborted")
		} else if result.Processed > 0 {
			log.WithFields(log.Fields{
				"paid":    result.Paid,
				"failed":  result.Failed,
				"skipped": result.Skipped,
			}).Infof("payout run processed %d claims", result.Processed)
		}

		select {
		case <-ctx.Done():
			log.Info("Shutting down faucetd")
			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					log.WithError(err).Error("error shutting down server")
				}
			}

			return nil
		case <-ticker.C:
		}
	}
}
