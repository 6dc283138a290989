package lightning

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	"github.com/satoshifaucet/faucetd/money"
	"github.com/stretchr/testify/require"
)

// Fixtures for minting invoices in tests of packages that consume BOLT11.
var (
	TestPaymentHash = [32]byte{
		0xd7, 0x8a, 0x8b, 0xa8, 0xb6, 0x25, 0x10, 0x27,
		0xf3, 0x7f, 0xd6, 0xfe, 0xbf, 0xf0, 0x31, 0x5f,
		0x2d, 0x45, 0xbe, 0x83, 0x1b, 0xa3, 0x13, 0xfb,
		0x23, 0xc6, 0xe0, 0x3a, 0x2a, 0xbe, 0x3c, 0xa5,
	}

	TestPrivKeyBytes, _ = hex.DecodeString("e126f68f7eafcc8b74f54d269fe206be715000f94dac067d1c04a8ca3b2db734")

	TestPrivKey, _ = btcec.PrivKeyFromBytes(TestPrivKeyBytes)

	TestMessageSigner = zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			hash := chainhash.HashB(msg)
			sig := ecdsa.SignCompact(TestPrivKey, hash, true)

			return sig, nil
		},
	}

	Description   = "faucet test payout"
	EmptyFeatures = lnwire.NewFeatureVector(nil, lnwire.Features)
)

type InvoiceOption func(*zpay32.Invoice)

// WithoutAmount mints a zero-amount invoice.
func WithoutAmount() InvoiceOption {
	return func(i *zpay32.Invoice) {
		i.MilliSat = nil
	}
}

func WithInvoiceNetwork(params *chaincfg.Params) InvoiceOption {
	return func(i *zpay32.Invoice) {
		i.Net = params
	}
}

// CreateMockInvoice returns a signed regtest invoice for amount.
func CreateMockInvoice(t testing.TB, amount money.MilliSats, opts ...InvoiceOption) string {
	t.Helper()

	msat := lnwire.MilliSatoshi(amount)
	decodedInvoice := zpay32.Invoice{
		Net:         &chaincfg.RegressionNetParams,
		MilliSat:    &msat,
		PaymentHash: &TestPaymentHash,
		Description: &Description,
		Features:    EmptyFeatures,
		Timestamp:   time.Now(),
	}

	for _, opt := range opts {
		opt(&decodedInvoice)
	}

	s, err := decodedInvoice.Encode(TestMessageSigner)
	require.NoErrorf(t, err, "encoding mock invoice: %v", err)

	return s
}
