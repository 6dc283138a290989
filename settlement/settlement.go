// Package settlement pays BOLT11 invoices through an external provider.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/satoshifaucet/faucetd/lightning"
	log "github.com/sirupsen/logrus"
)

const DefaultTimeout = 20 * time.Second

type Provider string

const (
	ProviderNone   Provider = ""
	ProviderLNbits Provider = "lnbits"
	ProviderLND    Provider = "lnd"
)

var (
	ErrNotConfigured   = errors.New("settlement provider not configured")
	ErrTransport       = errors.New("settlement transport error")
	ErrProvider        = errors.New("settlement provider error")
	ErrUnknownProvider = errors.New("unknown settlement provider")
)

// Payment is the outcome of a successful settlement.
type Payment struct {
	// Reference identifies the payment on the provider side. Providers are
	// not required to return one, so it may be empty.
	Reference string
}

//go:generate go tool mockgen -destination=mock.go -package=settlement . Settler
type Settler interface {
	Pay(ctx context.Context, bolt11 string) (*Payment, error)
}

type LNbitsConfig struct {
	URL    string
	APIKey string
}

type LNDConfig struct {
	Endpoint      string
	MacaroonPath  string
	TLSCertPath   string
	Network       lightning.Network
	FeeLimitRatio float64
}

type Config struct {
	Provider Provider
	Timeout  time.Duration
	LNbits   LNbitsConfig
	LND      LNDConfig
}

// New returns the settler for the configured provider and a function that
// releases its resources.
func New(ctx context.Context, cfg Config) (Settler, func(), error) {
	noop := func() {}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case ProviderNone:
		log.Warn("no settlement provider configured, claims will fail as not configured")

		return Unconfigured{}, noop, nil
	case ProviderLNbits:
		if cfg.LNbits.URL == "" || cfg.LNbits.APIKey == "" {
			log.Warn("LNbits url or api key missing, claims will fail as not configured")

			return Unconfigured{}, noop, nil
		}

		return NewLNbits(cfg.LNbits.URL, cfg.LNbits.APIKey, WithLNbitsTimeout(timeout)), noop, nil
	case ProviderLND:
		client, err := NewLND(ctx,
			WithLndEndpoint(cfg.LND.Endpoint),
			WithMacaroonFilePath(cfg.LND.MacaroonPath),
			WithTLSCertFilePath(cfg.LND.TLSCertPath),
			WithNetwork(cfg.LND.Network),
			WithFeeLimitRatio(cfg.LND.FeeLimitRatio),
			WithPaymentTimeout(timeout),
		)
		if err != nil {
			return nil, noop, err
		}

		return client, client.CloseConnection, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// Unconfigured records claims without paying them.
type Unconfigured struct{}

var _ Settler = Unconfigured{}

func (Unconfigured) Pay(context.Context, string) (*Payment, error) {
	return nil, ErrNotConfigured
}
