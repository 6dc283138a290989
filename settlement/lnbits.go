package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	lnbitsPaymentsPath = "/api/v1/payments"
	// Error bodies are quoted in failure reasons, keep them short.
	maxErrorBodyLength = 200
)

type lnbitsPayRequest struct {
	Out    bool   `json:"out"`
	Bolt11 string `json:"bolt11"`
}

type lnbitsPayResponse struct {
	PaymentHash string `json:"payment_hash"`
	CheckingID  string `json:"checking_id"`
}

type LNbitsOption func(*LNbits)

func WithLNbitsHTTPClient(client *http.Client) LNbitsOption {
	return func(l *LNbits) {
		l.client = client
	}
}

func WithLNbitsTimeout(timeout time.Duration) LNbitsOption {
	return func(l *LNbits) {
		l.timeout = timeout
	}
}

// LNbits pays invoices from an LNbits wallet using its admin key.
type LNbits struct {
	endpoint string
	apiKey   string
	client   *http.Client
	timeout  time.Duration
}

var _ Settler = (*LNbits)(nil)

func NewLNbits(baseURL, apiKey string, opts ...LNbitsOption) *LNbits {
	l := &LNbits{
		endpoint: strings.TrimRight(baseURL, "/") + lnbitsPaymentsPath,
		apiKey:   apiKey,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}

	client := http.Client{}
	if l.client != nil {
		client = *l.client
	}
	client.Timeout = l.timeout
	l.client = &client

	return l
}

func (l *LNbits) Pay(ctx context.Context, bolt11 string) (*Payment, error) {
	payload, err := json.Marshal(lnbitsPayRequest{Out: true, Bolt11: bolt11})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %w", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: LNbits: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: LNbits: reading body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: LNbits HTTP %d: %s", ErrProvider, resp.StatusCode, truncate(string(body), maxErrorBodyLength))
	}

	// A JSON null decodes without error but is not a payment.
	var res *lnbitsPayResponse
	if err := json.Unmarshal(body, &res); err != nil || res == nil {
		return nil, fmt.Errorf("%w: LNbits invalid JSON", ErrProvider)
	}

	reference := res.PaymentHash
	if reference == "" {
		reference = res.CheckingID
	}

	return &Payment{Reference: reference}, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
