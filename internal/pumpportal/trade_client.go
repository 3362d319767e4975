package pumpportal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-sniper/internal/execution"
	"solana-sniper/internal/solana"
)

// DefaultTradeURL is the Lightning API base URL.
const DefaultTradeURL = "https://pumpportal.fun/api"

// KeyOpener unseals an account's stored API key.
type KeyOpener interface {
	Open(sealed string) (string, error)
}

// FillLookup resolves the settled price and fee of a landed transaction.
type FillLookup interface {
	LookupFill(ctx context.Context, signature, owner, mint string) (*solana.Fill, error)
}

// TradeClient implements execution.Trader with the Lightning trade API.
// Each account trades with its own API key.
type TradeClient struct {
	endpoint string
	client   *http.Client
	keys     KeyOpener
	fills    FillLookup
	fee      float64
	log      logrus.FieldLogger
}

var _ execution.Trader = (*TradeClient)(nil)

// TradeOption configures TradeClient.
type TradeOption func(*TradeClient)

// WithTradeTimeout sets the HTTP timeout of one trade request.
func WithTradeTimeout(d time.Duration) TradeOption {
	return func(c *TradeClient) {
		c.client.Timeout = d
	}
}

// WithTradeHTTPClient sets custom http.Client.
func WithTradeHTTPClient(client *http.Client) TradeOption {
	return func(c *TradeClient) {
		c.client = client
	}
}

// WithFillLookup enables price and fee resolution from the landed transaction.
func WithFillLookup(fills FillLookup) TradeOption {
	return func(c *TradeClient) {
		c.fills = fills
	}
}

// WithDefaultPriorityFee sets the priority fee (SOL) used when a request carries none.
func WithDefaultPriorityFee(fee float64) TradeOption {
	return func(c *TradeClient) {
		c.fee = fee
	}
}

// WithTradeLogger sets the logger.
func WithTradeLogger(log logrus.FieldLogger) TradeOption {
	return func(c *TradeClient) {
		c.log = log
	}
}

// NewTradeClient creates a trade client for the API rooted at endpoint.
func NewTradeClient(endpoint string, keys KeyOpener, opts ...TradeOption) *TradeClient {
	l := logrus.New()
	l.SetOutput(io.Discard)

	c := &TradeClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
		keys:     keys,
		log:      l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire submits a buy denominated in SOL. Transport failures are returned
// as errors; API refusals come back as an unsuccessful result.
func (c *TradeClient) Acquire(ctx context.Context, req execution.AcquireRequest) (*execution.AcquireResult, error) {
	if req.Account == nil {
		return nil, fmt.Errorf("acquire %s: no account", req.Mint)
	}

	apiKey, err := c.keys.Open(req.Account.SealedAPIKey)
	if err != nil {
		return nil, fmt.Errorf("open api key for account %s: %w", req.Account.ID, err)
	}

	if req.PriorityFee <= 0 {
		req.PriorityFee = c.fee
	}

	body, err := json.Marshal(tradeRequest{
		Action:           "buy",
		Mint:             req.Mint,
		Amount:           req.Amount,
		DenominatedInSol: "true",
		Slippage:         req.SlippagePct,
		PriorityFee:      req.PriorityFee,
		Pool:             string(req.Pool),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal trade request: %w", err)
	}

	endpoint := c.endpoint + "/trade?api-key=" + url.QueryEscape(apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// The URL carries the API key; report the operation only.
		return nil, fmt.Errorf("trade request: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var tr tradeResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &execution.AcquireResult{
				Error: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
			}, nil
		}
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if msg := errorText(tr.Errors); msg != "" || tr.Signature == "" {
		if msg == "" {
			msg = fmt.Sprintf("status %d: no signature returned", resp.StatusCode)
		}
		return &execution.AcquireResult{Error: msg}, nil
	}

	result := &execution.AcquireResult{
		Success:   true,
		Signature: tr.Signature,
		Fee:       req.PriorityFee,
	}

	if c.fills != nil {
		fill, err := c.fills.LookupFill(ctx, tr.Signature, req.Account.PublicKey, req.Mint)
		if err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"account":   req.Account.ID,
				"mint":      req.Mint,
				"signature": tr.Signature,
			}).Warn("fill lookup failed")
			return result, nil
		}
		result.Price = fill.Price.InexactFloat64()
		result.Fee = fill.Fee.InexactFloat64()
	}

	return result, nil
}

// errorText flattens the API's errors field, which is a string or a list.
func errorText(v interface{}) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	case []interface{}:
		parts := make([]string, 0, len(e))
		for _, item := range e {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(e)
	}
}

func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
