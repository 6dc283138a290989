package settlement

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"github.com/satoshifaucet/faucetd/lightning"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/macaroon.v2"
)

const testPaymentHash = "d78a8ba8b6251027f37fd6febff0315f2d45be831ba313fb23c6e03a2abe3ca5"

func writeCredentials(t *testing.T, fs afero.Fs, macaroonPath, certPath string) {
	t.Helper()

	cert := &x509.Certificate{}
	certBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(t, afero.WriteFile(fs, certPath, certBytes, 0644))

	mac, err := macaroon.New([]byte("dummy-id"), []byte("dummy-location"), "dummy-root", macaroon.LatestVersion)
	require.NoError(t, err)
	macaroonBytes, err := mac.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, macaroonPath, macaroonBytes, 0644))
}

func TestNewLND_WithFSMacaroonAndCert(t *testing.T) {
	ctx := context.Background()
	memFs := afero.NewMemMapFs()
	writeCredentials(t, memFs, "/lnd/regtest/admin.macaroon", "/lnd/tls.cert")

	client, err := NewLND(ctx,
		WithLndEndpoint("localhost:10009"),
		WithTLSCertFilePath("/lnd/tls.cert"),
		WithMacaroonFilePath("/lnd/{Network}/admin.macaroon"),
		WithNetwork(lightning.Regtest),
		WithFS(memFs),
	)
	require.NoError(t, err)
	defer client.CloseConnection()

	require.Equal(t, DefaultFeeLimitRatio, client.feeLimitRatio)
	require.Equal(t, DefaultTimeout, client.paymentTimeout)
}

func TestNewLND_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing macaroon", func(t *testing.T) {
		_, err := NewLND(ctx, WithFS(afero.NewMemMapFs()))
		require.ErrorContains(t, err, "failed reading macaroon file")
	})

	t.Run("missing cert", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		writeCredentials(t, memFs, "/admin.macaroon", "/tls.cert")
		require.NoError(t, memFs.Remove("/tls.cert"))

		_, err := NewLND(ctx, WithFS(memFs), WithMacaroonFilePath("/admin.macaroon"), WithTLSCertFilePath("/tls.cert"))
		require.ErrorContains(t, err, "failed reading TLS cert file")
	})

	t.Run("garbage macaroon", func(t *testing.T) {
		memFs := afero.NewMemMapFs()
		writeCredentials(t, memFs, "/admin.macaroon", "/tls.cert")
		require.NoError(t, afero.WriteFile(memFs, "/admin.macaroon", []byte("not a macaroon"), 0644))

		_, err := NewLND(ctx, WithFS(memFs), WithMacaroonFilePath("/admin.macaroon"), WithTLSCertFilePath("/tls.cert"))
		require.ErrorContains(t, err, "failed unmarshalling macaroon")
	})

	t.Run("fee limit ratio out of range", func(t *testing.T) {
		_, err := NewLND(ctx, WithFeeLimitRatio(1.5))
		require.ErrorIs(t, err, ErrInvalidFeeLimitRatio)
	})
}

type fakeLightningClient struct {
	lnrpc.LightningClient
	numSatoshis int64
	err         error
	ctx         context.Context
}

func (f *fakeLightningClient) DecodePayReq(ctx context.Context, _ *lnrpc.PayReqString, _ ...grpc.CallOption) (*lnrpc.PayReq, error) {
	f.ctx = ctx
	if f.err != nil {
		return nil, f.err
	}

	return &lnrpc.PayReq{NumSatoshis: f.numSatoshis}, nil
}

type fakeRouterClient struct {
	routerrpc.RouterClient
	stream  *fakePaymentStream
	err     error
	request *routerrpc.SendPaymentRequest
	ctx     context.Context
}

func (f *fakeRouterClient) SendPaymentV2(ctx context.Context, in *routerrpc.SendPaymentRequest, _ ...grpc.CallOption) (routerrpc.Router_SendPaymentV2Client, error) {
	f.request = in
	f.ctx = ctx
	if f.err != nil {
		return nil, f.err
	}

	return f.stream, nil
}

type fakePaymentStream struct {
	grpc.ClientStream
	updates []*lnrpc.Payment
	err     error
	closed  bool
}

func (f *fakePaymentStream) Recv() (*lnrpc.Payment, error) {
	if len(f.updates) == 0 {
		if f.err != nil {
			return nil, f.err
		}

		return nil, io.EOF
	}
	next := f.updates[0]
	f.updates = f.updates[1:]

	return next, nil
}

func (f *fakePaymentStream) CloseSend() error {
	f.closed = true

	return nil
}

func TestLNDPay(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		numSatoshis int64
		decodeErr   error
		sendErr     error
		updates     []*lnrpc.Payment
		streamErr   error
		want        *Payment
		wantErr     error
		wantFee     int64
	}{
		{
			name:        "succeeds after in flight updates",
			numSatoshis: 100000,
			updates: []*lnrpc.Payment{
				{PaymentHash: testPaymentHash, Status: lnrpc.Payment_IN_FLIGHT},
				{PaymentHash: testPaymentHash, Status: lnrpc.Payment_SUCCEEDED},
			},
			want:    &Payment{Reference: testPaymentHash},
			wantFee: 500,
		},
		{
			name:        "small payouts get the minimum fee budget",
			numSatoshis: 100,
			updates: []*lnrpc.Payment{
				{PaymentHash: testPaymentHash, Status: lnrpc.Payment_SUCCEEDED},
			},
			want:    &Payment{Reference: testPaymentHash},
			wantFee: MinFeeLimitSat,
		},
		{
			name:        "payment fails",
			numSatoshis: 100,
			updates: []*lnrpc.Payment{
				{PaymentHash: testPaymentHash, Status: lnrpc.Payment_IN_FLIGHT},
				{PaymentHash: testPaymentHash, Status: lnrpc.Payment_FAILED, FailureReason: lnrpc.PaymentFailureReason_FAILURE_REASON_NO_ROUTE},
			},
			wantErr: ErrProvider,
			wantFee: MinFeeLimitSat,
		},
		{
			name:        "stream breaks",
			numSatoshis: 100,
			streamErr:   status.Error(codes.Unavailable, "connection reset"),
			wantErr:     ErrTransport,
			wantFee:     MinFeeLimitSat,
		},
		{
			name:      "invalid invoice",
			decodeErr: status.Error(codes.InvalidArgument, "invalid bech32 string"),
			wantErr:   ErrProvider,
		},
		{
			name:      "node unreachable",
			decodeErr: status.Error(codes.Unavailable, "connection refused"),
			wantErr:   ErrTransport,
		},
		{
			name:        "invoice already paid",
			numSatoshis: 100,
			sendErr:     status.Error(codes.AlreadyExists, "invoice is already paid"),
			wantErr:     ErrProvider,
			wantFee:     MinFeeLimitSat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := &fakePaymentStream{updates: tt.updates, err: tt.streamErr}
			router := &fakeRouterClient{stream: stream, err: tt.sendErr}
			client := &LND{
				routerClient:    router,
				lndClient:       &fakeLightningClient{numSatoshis: tt.numSatoshis, err: tt.decodeErr},
				feeLimitRatio:   DefaultFeeLimitRatio,
				paymentTimeout:  20 * time.Second,
				closeConnection: func() {},
			}

			got, err := client.Pay(ctx, "lnbcrt1invoice")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}

			if tt.decodeErr != nil {
				require.Nil(t, router.request)

				return
			}
			require.Equal(t, "lnbcrt1invoice", router.request.PaymentRequest)
			require.Equal(t, tt.wantFee, router.request.FeeLimitSat)
			require.EqualValues(t, 20, router.request.TimeoutSeconds)
			if tt.sendErr == nil {
				require.True(t, stream.closed)
			}
		})
	}
}

func TestLNDPay_RPCsHaveADeadline(t *testing.T) {
	// The scheduler hands settlers a context that is never cancelled.
	ctx := context.WithoutCancel(context.Background())

	stream := &fakePaymentStream{updates: []*lnrpc.Payment{
		{PaymentHash: testPaymentHash, Status: lnrpc.Payment_SUCCEEDED},
	}}
	router := &fakeRouterClient{stream: stream}
	lndClient := &fakeLightningClient{numSatoshis: 100}
	client := &LND{
		routerClient:    router,
		lndClient:       lndClient,
		feeLimitRatio:   DefaultFeeLimitRatio,
		paymentTimeout:  20 * time.Second,
		closeConnection: func() {},
	}

	start := time.Now()
	_, err := client.Pay(ctx, "lnbcrt1invoice")
	require.NoError(t, err)

	for name, rpcCtx := range map[string]context.Context{"DecodePayReq": lndClient.ctx, "SendPaymentV2": router.ctx} {
		deadline, ok := rpcCtx.Deadline()
		require.Truef(t, ok, "%s has no deadline", name)
		require.WithinDuration(t, start.Add(20*time.Second+rpcDeadlineMargin), deadline, time.Second)
		// Released once Pay returns.
		require.ErrorIs(t, rpcCtx.Err(), context.Canceled)
	}
}

func TestRPCError(t *testing.T) {
	require.ErrorIs(t, rpcError("op", errors.New("plain")), ErrTransport)
	require.ErrorIs(t, rpcError("op", status.Error(codes.DeadlineExceeded, "slow")), ErrTransport)
	require.ErrorIs(t, rpcError("op", status.Error(codes.NotFound, "unknown")), ErrProvider)
}

func TestPaymentReference(t *testing.T) {
	require.Equal(t, testPaymentHash, paymentReference(testPaymentHash))
	require.Equal(t, "not-a-hash", paymentReference("not-a-hash"))
}
