// Package config loads the payout pipeline settings from defaults, an
// optional config file, a .env file and FAUCET_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/satoshifaucet/faucetd/lightning"
	"github.com/satoshifaucet/faucetd/lnurlpay"
	"github.com/satoshifaucet/faucetd/money"
	"github.com/satoshifaucet/faucetd/settlement"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const EnvPrefix = "FAUCET"

const (
	DefaultRewardSats = 100
	DefaultBatchSize  = 10
	MaxBatchSize      = 1000
	DefaultInterval   = time.Minute
	DefaultAPIListen  = "127.0.0.1:8080"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// Sats sent to each paid claim
	RewardSats money.Money
	// Sats reserved from the balance at intake, refunded on failure
	ClaimAmountSats money.Money
	BatchSize       int
	RefundOnFailure bool
	Interval        time.Duration
	// Zero disables the requeue of stuck processing claims
	StaleProcessingAfter time.Duration
	VerifyInvoiceAmount  bool
	Network              lightning.Network

	LNURLTimeout   time.Duration
	LNURLUserAgent string

	Settlement settlement.Config

	APIListen string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("reward_sats", DefaultRewardSats)
	v.SetDefault("claim_amount_sats", 0)
	v.SetDefault("batch_size", DefaultBatchSize)
	v.SetDefault("refund_on_failure", true)
	v.SetDefault("interval", DefaultInterval.String())
	v.SetDefault("stale_processing_after", "0s")
	v.SetDefault("verify_invoice_amount", false)
	v.SetDefault("network", string(lightning.Mainnet))

	v.SetDefault("lnurl.timeout", lnurlpay.DefaultTimeout.String())
	v.SetDefault("lnurl.user_agent", lnurlpay.DefaultUserAgent)

	v.SetDefault("settlement.provider", "")
	v.SetDefault("settlement.timeout", settlement.DefaultTimeout.String())
	v.SetDefault("lnbits.url", "")
	v.SetDefault("lnbits.api_key", "")
	v.SetDefault("lnd.endpoint", "localhost:10009")
	v.SetDefault("lnd.macaroon_path", "")
	v.SetDefault("lnd.tls_cert_path", "")
	v.SetDefault("lnd.fee_limit_ratio", settlement.DefaultFeeLimitRatio)

	v.SetDefault("api.listen", DefaultAPIListen)
}

// Load reads envFile (if present) into the environment, then configFile (if
// not empty) and the FAUCET_ variables. Keys nest with a dot in files and
// with an underscore in the environment: lnbits.api_key is
// FAUCET_LNBITS_API_KEY.
func Load(envFile, configFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("error loading %s: %w", envFile, err)
			}
			log.WithField("file", envFile).Debug("no env file found")
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	durations := map[string]time.Duration{}
	for _, key := range []string{"interval", "stale_processing_after", "lnurl.timeout", "settlement.timeout"} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		durations[key] = d
	}

	reward := v.GetInt64("reward_sats")
	claimAmount := v.GetInt64("claim_amount_sats")
	if reward < 0 || claimAmount < 0 {
		return nil, fmt.Errorf("%w: amounts cannot be negative", ErrInvalidConfig)
	}
	if claimAmount == 0 {
		claimAmount = reward
	}

	cfg := &Config{
		RewardSats:           money.Money(reward),
		ClaimAmountSats:      money.Money(claimAmount),
		BatchSize:            v.GetInt("batch_size"),
		RefundOnFailure:      v.GetBool("refund_on_failure"),
		Interval:             durations["interval"],
		StaleProcessingAfter: durations["stale_processing_after"],
		VerifyInvoiceAmount:  v.GetBool("verify_invoice_amount"),
		Network:              lightning.Network(strings.ToLower(v.GetString("network"))),
		LNURLTimeout:         durations["lnurl.timeout"],
		LNURLUserAgent:       v.GetString("lnurl.user_agent"),
		Settlement: settlement.Config{
			Provider: settlement.Provider(strings.ToLower(v.GetString("settlement.provider"))),
			Timeout:  durations["settlement.timeout"],
			LNbits: settlement.LNbitsConfig{
				URL:    v.GetString("lnbits.url"),
				APIKey: v.GetString("lnbits.api_key"),
			},
			LND: settlement.LNDConfig{
				Endpoint:      v.GetString("lnd.endpoint"),
				MacaroonPath:  v.GetString("lnd.macaroon_path"),
				TLSCertPath:   v.GetString("lnd.tls_cert_path"),
				FeeLimitRatio: v.GetFloat64("lnd.fee_limit_ratio"),
			},
		},
		APIListen: v.GetString("api.listen"),
	}
	cfg.Settlement.LND.Network = cfg.Network

	return cfg, nil
}

// Validate checks every setting is usable.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.RewardSats == 0 {
		invalid("reward must be at least 1 sat")
	}
	if c.ClaimAmountSats < c.RewardSats {
		invalid("claim amount %s is lower than the reward %s", c.ClaimAmountSats, c.RewardSats)
	}
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		invalid("batch size must be between 1 and %d, got %d", MaxBatchSize, c.BatchSize)
	}
	if c.Interval < time.Second {
		invalid("interval must be at least 1s, got %s", c.Interval)
	}
	if c.StaleProcessingAfter < 0 {
		invalid("stale processing threshold cannot be negative")
	}
	if c.StaleProcessingAfter > 0 && c.StaleProcessingAfter < c.LNURLTimeout*2+c.Settlement.Timeout {
		invalid("stale processing threshold %s is shorter than a single payout attempt", c.StaleProcessingAfter)
	}
	if lightning.ToChainCfgNetwork(c.Network) == nil {
		invalid("unknown network %q", c.Network)
	}
	if c.LNURLTimeout <= 0 || c.Settlement.Timeout <= 0 {
		invalid("timeouts must be positive")
	}

	switch c.Settlement.Provider {
	case settlement.ProviderNone:
	case settlement.ProviderLNbits:
		if c.Settlement.LNbits.URL != "" {
			u, err := url.Parse(c.Settlement.LNbits.URL)
			if err != nil || u.Scheme != "https" || u.Host == "" {
				invalid("LNbits url must be an https URL")
			}
		}
	case settlement.ProviderLND:
		if c.Settlement.LND.FeeLimitRatio < 0 || c.Settlement.LND.FeeLimitRatio > 1 {
			invalid("LND fee limit ratio must be between 0 and 1")
		}
	default:
		invalid("unknown settlement provider %q", c.Settlement.Provider)
	}

	return errors.Join(errs...)
}
