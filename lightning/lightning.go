// Package lightning holds BOLT11 helpers shared by the payout pipeline.
package lightning

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	"github.com/satoshifaucet/faucetd/money"
)

type Network string

const Mainnet Network = "mainnet"
const Regtest Network = "regtest"
const Testnet Network = "testnet"
const Signet Network = "signet"

var (
	ErrUnknownNetwork        = errors.New("unknown network")
	ErrInvalidInvoice        = errors.New("invalid invoice")
	ErrInvoiceAmountMismatch = errors.New("invoice amount mismatch")
)

func ToChainCfgNetwork(network Network) *chaincfg.Params {
	switch network {
	case Mainnet:
		return &chaincfg.MainNetParams
	case Regtest:
		return &chaincfg.RegressionNetParams
	case Testnet:
		return &chaincfg.TestNet3Params
	case Signet:
		return &chaincfg.SigNetParams
	default:
		return nil
	}
}

func ParseNetwork(s string) (Network, error) {
	network := Network(strings.ToLower(strings.TrimSpace(s)))
	if ToChainCfgNetwork(network) == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownNetwork, s)
	}

	return network, nil
}

// VerifyInvoiceAmount decodes bolt11 for network and checks it asks for exactly
// the given amount. Invoices without an amount are rejected.
func VerifyInvoiceAmount(bolt11 string, network Network, amount money.MilliSats) error {
	params := ToChainCfgNetwork(network)
	if params == nil {
		return fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}

	invoice, err := zpay32.Decode(strings.TrimSpace(bolt11), params)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInvoice, err)
	}

	if invoice.MilliSat == nil {
		return fmt.Errorf("%w: invoice has no amount", ErrInvoiceAmountMismatch)
	}

	if *invoice.MilliSat != lnwire.MilliSatoshi(amount) {
		return fmt.Errorf("%w: got %dmsat, want %s", ErrInvoiceAmountMismatch, uint64(*invoice.MilliSat), amount)
	}

	return nil
}
