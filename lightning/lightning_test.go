package lightning

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
	"github.com/satoshifaucet/faucetd/money"
	"github.com/stretchr/testify/require"
)

func TestVerifyInvoiceAmount(t *testing.T) {
	tests := []struct {
		name    string
		invoice string
		network Network
		amount  money.MilliSats
		wantErr error
	}{
		{
			name:    "matching amount",
			invoice: CreateMockInvoice(t, 100000),
			network: Regtest,
			amount:  100000,
		},
		{
			name:    "different amount",
			invoice: CreateMockInvoice(t, 150000),
			network: Regtest,
			amount:  100000,
			wantErr: ErrInvoiceAmountMismatch,
		},
		{
			name:    "zero amount invoice",
			invoice: CreateMockInvoice(t, 100000, WithoutAmount()),
			network: Regtest,
			amount:  100000,
			wantErr: ErrInvoiceAmountMismatch,
		},
		{
			name:    "wrong network",
			invoice: CreateMockInvoice(t, 100000),
			network: Mainnet,
			amount:  100000,
			wantErr: ErrInvalidInvoice,
		},
		{
			name:    "garbage",
			invoice: "lnbcrt1garbage",
			network: Regtest,
			amount:  100000,
			wantErr: ErrInvalidInvoice,
		},
		{
			name:    "unknown network",
			invoice: CreateMockInvoice(t, 100000),
			network: "liquid",
			amount:  100000,
			wantErr: ErrUnknownNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyInvoiceAmount(tt.invoice, tt.network, tt.amount)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCreateMockInvoice_Options(t *testing.T) {
	memo := "faucet payout"
	invoice := CreateMockInvoice(t, 21000, func(i *zpay32.Invoice) {
		i.Description = &memo
	})

	decoded, err := zpay32.Decode(invoice, ToChainCfgNetwork(Regtest))
	require.NoError(t, err)
	require.Equal(t, memo, *decoded.Description)
	require.EqualValues(t, 21000, *decoded.MilliSat)
}

func TestCreateMockInvoice_Network(t *testing.T) {
	invoice := CreateMockInvoice(t, 1000, WithInvoiceNetwork(&chaincfg.TestNet3Params))

	require.NoError(t, VerifyInvoiceAmount(invoice, Testnet, 1000))
	require.ErrorIs(t, VerifyInvoiceAmount(invoice, Regtest, 1000), ErrInvalidInvoice)
}

func TestParseNetwork(t *testing.T) {
	network, err := ParseNetwork(" Regtest ")
	require.NoError(t, err)
	require.Equal(t, Regtest, network)

	_, err = ParseNetwork("simnet")
	require.ErrorIs(t, err, ErrUnknownNetwork)
}
