// Package lnurlpay implements the wallet side of the LNURL-pay handshake:
// fetching the pay request metadata and asking its callback for an invoice.
package lnurlpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/satoshifaucet/faucetd/money"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "TheSatoshiFaucet/1.0"

	payRequestTag = "payRequest"
	statusError   = "ERROR"
	// Bodies beyond this size are not LNURL responses.
	maxBodyBytes = 1 << 20
)

var (
	ErrTransport        = errors.New("lnurl transport error")
	ErrNotPayable       = errors.New("LNURL not payable")
	ErrMissingField     = errors.New("LNURL-pay response missing field")
	ErrAmountOutOfRange = errors.New("amount out of range")
	ErrProviderRejected = errors.New("LNURL callback error")
	ErrMissingInvoice   = errors.New("callback did not return a valid invoice")
)

//go:generate go tool mockgen -destination=mock.go -package=lnurlpay . ClientInterface
type ClientInterface interface {
	FetchPayMetadata(ctx context.Context, target *url.URL) (*PayMetadata, error)
	RequestInvoice(ctx context.Context, metadata *PayMetadata, amount money.MilliSats) (string, error)
}

// PayMetadata is the subset of an LNURL-pay response the faucet relies on.
type PayMetadata struct {
	Callback    string
	MinSendable money.MilliSats
	MaxSendable money.MilliSats
}

type payResponse struct {
	Tag         string  `json:"tag"`
	Callback    *string `json:"callback"`
	MinSendable *int64  `json:"minSendable"`
	MaxSendable *int64  `json:"maxSendable"`
	Status      string  `json:"status"`
	Reason      string  `json:"reason"`
}

type invoiceResponse struct {
	PR     *string `json:"pr"`
	Status string  `json:"status"`
	Reason string  `json:"reason"`
}

type Option func(*Options)

func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.httpClient = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.timeout = timeout
	}
}

func WithUserAgent(userAgent string) Option {
	return func(o *Options) {
		o.userAgent = userAgent
	}
}

type Options struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

type Client struct {
	client    *http.Client
	userAgent string
}

var _ ClientInterface = (*Client)(nil)

// NewClient creates a LNURL-pay client. Certificates are always verified;
// the default transport is used unless WithHTTPClient overrides it.
func NewClient(options ...Option) *Client {
	opts := Options{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, option := range options {
		option(&opts)
	}

	httpClient := opts.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	// Copy so the timeout never leaks into a caller-owned client.
	bounded := *httpClient
	bounded.Timeout = opts.timeout

	return &Client{
		client:    &bounded,
		userAgent: opts.userAgent,
	}
}

// FetchPayMetadata queries the URL an LNURL decodes to and validates it is a
// pay request.
func (c *Client) FetchPayMetadata(ctx context.Context, target *url.URL) (*PayMetadata, error) {
	var res payResponse
	if err := c.getJSON(ctx, target.String(), &res); err != nil {
		return nil, err
	}

	if res.Tag != payRequestTag {
		reason := res.Reason
		if reason == "" {
			reason = "Not an LNURL-pay request"
		}

		return nil, fmt.Errorf("%w: %s", ErrNotPayable, reason)
	}

	if res.Callback == nil || strings.TrimSpace(*res.Callback) == "" {
		return nil, fmt.Errorf("%w: callback", ErrMissingField)
	}
	if res.MinSendable == nil || res.MaxSendable == nil {
		return nil, fmt.Errorf("%w: minSendable/maxSendable", ErrMissingField)
	}
	if *res.MinSendable < 0 || *res.MaxSendable < *res.MinSendable {
		return nil, fmt.Errorf("%w: inconsistent sendable range %d-%d", ErrNotPayable, *res.MinSendable, *res.MaxSendable)
	}

	return &PayMetadata{
		Callback:    strings.TrimSpace(*res.Callback),
		MinSendable: money.MilliSats(*res.MinSendable),
		MaxSendable: money.MilliSats(*res.MaxSendable),
	}, nil
}

// RequestInvoice asks the pay request callback for a BOLT11 invoice of amount.
func (c *Client) RequestInvoice(ctx context.Context, metadata *PayMetadata, amount money.MilliSats) (string, error) {
	if amount < metadata.MinSendable || amount > metadata.MaxSendable {
		return "", fmt.Errorf("%w: %dmsat (min=%d, max=%d)", ErrAmountOutOfRange, amount, metadata.MinSendable, metadata.MaxSendable)
	}

	sep := "?"
	if strings.Contains(metadata.Callback, "?") {
		sep = "&"
	}
	callback := metadata.Callback + sep + "amount=" + strconv.FormatUint(uint64(amount), 10)

	var res invoiceResponse
	if err := c.getJSON(ctx, callback, &res); err != nil {
		return "", err
	}

	if strings.EqualFold(res.Status, statusError) {
		reason := res.Reason
		if reason == "" {
			reason = "unknown"
		}

		return "", fmt.Errorf("%w: %s", ErrProviderRejected, reason)
	}

	if res.PR == nil || !strings.HasPrefix(strings.ToLower(*res.PR), "ln") {
		return "", ErrMissingInvoice
	}

	return *res.PR, nil
}

func (c *Client) getJSON(ctx context.Context, target string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithField("url", redactQuery(target)).Debugf("lnurl endpoint answered %d", resp.StatusCode)

		return fmt.Errorf("%w: HTTP status %d", ErrTransport, resp.StatusCode)
	}

	// Responses must be JSON objects, a bare null would leave dst zeroed.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: invalid JSON response", ErrTransport)
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON response", ErrTransport)
	}

	return nil
}

// redactQuery drops query strings, which often carry per-user secrets, from
// logged URLs.
func redactQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""

	return u.String()
}
