// Package intake turns a user submitted destination into a pending claim.
package intake

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/satoshifaucet/faucetd/database"
	"github.com/satoshifaucet/faucetd/database/models"
	"github.com/satoshifaucet/faucetd/lnurl"
	"github.com/satoshifaucet/faucetd/money"
	log "github.com/sirupsen/logrus"
)

type Kind string

const (
	KindLNURL            Kind = "lnurl"
	KindBolt11           Kind = "bolt11"
	KindLightningAddress Kind = "lightning_address"
	KindUnknown          Kind = "unknown"
)

var (
	ErrEmptyDestination       = errors.New("destination is empty")
	ErrUnsupportedDestination = errors.New("unsupported destination, an LNURL is required")
	ErrInvalidDestination     = errors.New("invalid LNURL")
)

var (
	bolt11Prefix           = regexp.MustCompile(`(?i)^ln(bc|tb|bcrt|tbs)[0-9]*[munp]?1`)
	lightningAddressFormat = regexp.MustCompile(`^[a-zA-Z0-9._+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

const lightningScheme = "lightning:"

// Normalize trims the destination and strips a lightning: URI scheme.
func Normalize(raw string) string {
	dest := strings.TrimSpace(raw)
	if len(dest) >= len(lightningScheme) && strings.EqualFold(dest[:len(lightningScheme)], lightningScheme) {
		dest = strings.TrimSpace(dest[len(lightningScheme):])
	}

	return dest
}

// Classify tells which kind of lightning destination a normalized string is.
func Classify(dest string) Kind {
	switch {
	case lnurl.IsLNURL(dest):
		return KindLNURL
	case bolt11Prefix.MatchString(dest):
		return KindBolt11
	case lightningAddressFormat.MatchString(dest):
		return KindLightningAddress
	default:
		return KindUnknown
	}
}

type Request struct {
	Destination string
	IPAddress   string
}

type Service struct {
	repository  database.IntakeRepository
	claimAmount money.Money
}

func NewService(repository database.IntakeRepository, claimAmount money.Money) *Service {
	return &Service{
		repository:  repository,
		claimAmount: claimAmount,
	}
}

// Submit validates the destination and stores a pending claim for it,
// reserving the claim amount from the balance.
func (s *Service) Submit(ctx context.Context, req Request) (*models.Claim, error) {
	dest := Normalize(req.Destination)
	if dest == "" {
		return nil, ErrEmptyDestination
	}

	kind := Classify(dest)
	if kind != KindLNURL {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedDestination, kind)
	}

	target, err := lnurl.Resolve(dest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDestination, err)
	}

	claim := &models.Claim{
		// LNURLs are case-insensitive; the upper case form is the canonical one.
		Destination:    strings.ToUpper(dest),
		ReceiverDomain: target.Hostname(),
		IPAddress:      req.IPAddress,
		RequestedSats:  s.claimAmount,
	}
	if err := s.repository.CreateClaim(ctx, claim); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"id":     claim.ID,
		"domain": claim.ReceiverDomain,
	}).Infof("claim %d accepted for %s", claim.ID, s.claimAmount)

	return claim, nil
}
