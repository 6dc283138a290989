package settlement

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/macaroons"
	"github.com/satoshifaucet/faucetd/lightning"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
	"gopkg.in/macaroon.v2"
)

const (
	DefaultFeeLimitRatio = 0.005
	// Tiny faucet payouts would otherwise get a zero fee budget.
	MinFeeLimitSat int64 = 10

	// Extra time given to the RPCs over the payment timeout lnd enforces.
	rpcDeadlineMargin = 5 * time.Second

	defaultLndEndpoint     = "localhost:10009"
	defaultMacaroonPath    = "/root/.lnd/data/chain/bitcoin/{Network}/admin.macaroon"
	defaultTLSCertFilePath = "/root/.lnd/tls.cert"
)

var ErrInvalidFeeLimitRatio = errors.New("fee limit ratio must be between 0 and 1")

type LNDOption func(*LNDOptions)

func WithLndEndpoint(endpoint string) LNDOption {
	return func(o *LNDOptions) {
		o.lndEndpoint = endpoint
	}
}

func WithMacaroonFilePath(path string) LNDOption {
	return func(o *LNDOptions) {
		o.macaroonFilePath = path
	}
}

func WithTLSCertFilePath(path string) LNDOption {
	return func(o *LNDOptions) {
		o.tlsCertFilePath = path
	}
}

func WithNetwork(network lightning.Network) LNDOption {
	return func(o *LNDOptions) {
		o.network = network
	}
}

func WithFeeLimitRatio(ratio float64) LNDOption {
	return func(o *LNDOptions) {
		o.feeLimitRatio = ratio
	}
}

func WithPaymentTimeout(timeout time.Duration) LNDOption {
	return func(o *LNDOptions) {
		o.paymentTimeout = timeout
	}
}

// WithFS replaces the file system credentials are read from.
func WithFS(fs afero.Fs) LNDOption {
	return func(o *LNDOptions) {
		o.fs = fs
	}
}

type LNDOptions struct {
	lndEndpoint      string
	macaroonFilePath string
	tlsCertFilePath  string
	network          lightning.Network
	feeLimitRatio    float64
	paymentTimeout   time.Duration
	fs               afero.Fs
}

// LND pays invoices through the router subserver of an LND node.
type LND struct {
	routerClient    routerrpc.RouterClient
	lndClient       lnrpc.LightningClient
	feeLimitRatio   float64
	paymentTimeout  time.Duration
	closeConnection func()
}

var _ Settler = (*LND)(nil)

// NewLND creates a gRPC connection with an LND node from macaroon and cert
// file locations. The connection is established lazily on the first call.
func NewLND(ctx context.Context, opts ...LNDOption) (*LND, error) {
	options := LNDOptions{
		network:        lightning.Mainnet,
		feeLimitRatio:  DefaultFeeLimitRatio,
		paymentTimeout: DefaultTimeout,
		fs:             afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.network == "" {
		options.network = lightning.Mainnet
	}
	if options.lndEndpoint == "" {
		options.lndEndpoint = defaultLndEndpoint
	}
	if options.macaroonFilePath == "" {
		options.macaroonFilePath = defaultMacaroonPath
	}
	if options.tlsCertFilePath == "" {
		options.tlsCertFilePath = defaultTLSCertFilePath
	}
	if options.feeLimitRatio == 0 {
		options.feeLimitRatio = DefaultFeeLimitRatio
	}
	if options.feeLimitRatio < 0 || options.feeLimitRatio > 1 {
		return nil, ErrInvalidFeeLimitRatio
	}
	if options.paymentTimeout <= 0 {
		options.paymentTimeout = DefaultTimeout
	}

	macaroonPath := strings.ReplaceAll(options.macaroonFilePath, "{Network}", string(options.network))
	macaroonFileBytes, err := afero.ReadFile(options.fs, macaroonPath)
	if err != nil {
		return nil, fmt.Errorf("failed reading macaroon file: %w", err)
	}

	certBytes, err := afero.ReadFile(options.fs, options.tlsCertFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed reading TLS cert file: %w", err)
	}
	creds := credentials.NewClientTLSFromCert(loadCertPool(certBytes), "")

	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(macaroonFileBytes); err != nil {
		return nil, fmt.Errorf("failed unmarshalling macaroon: %w", err)
	}

	macCred, err := macaroons.NewMacaroonCredential(mac)
	if err != nil {
		return nil, fmt.Errorf("failed creating macaroon credentials: %w", err)
	}

	conn, err := grpc.NewClient(options.lndEndpoint, grpc.WithTransportCredentials(creds), grpc.WithPerRPCCredentials(macCred))
	if err != nil {
		return nil, fmt.Errorf("failed connecting to LND node: %w", err)
	}

	log.WithField("endpoint", options.lndEndpoint).Info("LND settlement client ready")

	return &LND{
		routerClient:   routerrpc.NewRouterClient(conn),
		lndClient:      lnrpc.NewLightningClient(conn),
		feeLimitRatio:  options.feeLimitRatio,
		paymentTimeout: options.paymentTimeout,
		closeConnection: func() {
			if err := conn.Close(); err != nil {
				log.WithError(err).Error("error closing connection")
			}
		},
	}, nil
}

// Pay sends the payment and follows it until it either succeeds or fails.
func (c *LND) Pay(ctx context.Context, bolt11 string) (*Payment, error) {
	// TimeoutSeconds only bounds pathfinding, a stalled node or stream needs a
	// client side deadline.
	ctx, cancel := context.WithTimeout(ctx, c.paymentTimeout+rpcDeadlineMargin)
	defer cancel()

	payReq, err := c.lndClient.DecodePayReq(ctx, &lnrpc.PayReqString{PayReq: bolt11})
	if err != nil {
		return nil, rpcError("decoding payment request", err)
	}

	feeLimitSat := int64(float64(payReq.NumSatoshis) * c.feeLimitRatio)
	if feeLimitSat < MinFeeLimitSat {
		feeLimitSat = MinFeeLimitSat
	}

	stream, err := c.routerClient.SendPaymentV2(ctx, &routerrpc.SendPaymentRequest{
		PaymentRequest: bolt11,
		FeeLimitSat:    feeLimitSat,
		TimeoutSeconds: int32(c.paymentTimeout.Seconds()),
	})
	if err != nil {
		return nil, rpcError("sending payment", err)
	}

	defer func() {
		if err := stream.CloseSend(); err != nil {
			log.WithError(err).Error("error closing stream for SendPaymentV2")
		}
	}()

	for {
		payment, err := stream.Recv()
		if err != nil {
			return nil, rpcError("payment stream", err)
		}

		log.WithFields(log.Fields{
			"payment_hash": payment.PaymentHash,
			"status":       payment.Status.String(),
		}).Debug("New SendPaymentV2 event")

		switch payment.Status {
		case lnrpc.Payment_SUCCEEDED:
			return &Payment{Reference: paymentReference(payment.PaymentHash)}, nil
		case lnrpc.Payment_FAILED:
			return nil, fmt.Errorf("%w: payment failed: %s", ErrProvider, payment.FailureReason.String())
		}
	}
}

// CloseConnection closes the connection with the lnd node
func (c *LND) CloseConnection() {
	c.closeConnection()
}

// rpcError maps a gRPC failure onto the settlement error kinds. Requests the
// node refused on their merits are provider errors, the rest are transport.
func rpcError(op string, err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.AlreadyExists, codes.FailedPrecondition, codes.NotFound:
		return fmt.Errorf("%w: %s: %s", ErrProvider, op, status.Convert(err).Message())
	default:
		return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}
}

func paymentReference(paymentHash string) string {
	hash, err := lntypes.MakeHashFromStr(paymentHash)
	if err != nil {
		return paymentHash
	}

	return hash.String()
}

// Helper function to load a certificate pool from cert bytes
func loadCertPool(certBytes []byte) *x509.CertPool {
	cp := x509.NewCertPool()
	cp.AppendCertsFromPEM(certBytes)

	return cp
}
