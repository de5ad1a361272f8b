// Package payment is the shop's client for the payment gateway service.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/pkg/retry"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type payRequest struct {
	Amount     json.Number `json:"amount"`
	PaymentKey string      `json:"paymentKey,omitempty"`
}

type payResponse struct {
	Message   string          `json:"message"`
	PaymentID string          `json:"paymentId"`
	Balance   decimal.Decimal `json:"balance"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Client talks to the gateway over HTTP. Business refusals come back as
// *domain.DeclinedError, everything else as domain.ErrGatewayUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
	retry   config.Retry
	logger  *zap.Logger
}

// New builds a Client. When cfg.TokenURL is set requests carry OAuth2 client
// credentials tokens for cfg.Scopes.
func New(cfg config.Payments, l *zap.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
		httpClient = cc.Client(ctx)
		httpClient.Timeout = cfg.Timeout
	}
	return NewWithHTTPClient(cfg.BaseURL, httpClient, cfg.Retry, l)
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client, policy config.Retry, l *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		retry:   policy,
		logger:  logger.OrNop(l).Named("payment_client"),
	}
}

// Balance reads the caller's account balance. Being read-only, it is retried
// on gateway unavailability.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	var out balanceResponse
	err := retry.Do(ctx, c.retry, isUnavailable, func() error {
		return c.do(ctx, http.MethodGet, "/payments/balance", "", nil, &out)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return out.Balance, nil
}

// Debit charges amount once per key. Replaying a key returns the original receipt.
func (c *Client) Debit(ctx context.Context, key string, amount decimal.Decimal) (domain.Receipt, error) {
	var out payResponse
	if err := c.do(ctx, http.MethodPost, "/payments/pay", key, payRequest{Amount: json.Number(amount.String())}, &out); err != nil {
		c.logger.Warn("debit failed", zap.String("key", key), zap.String("amount", amount.String()), zap.Error(err))
		return domain.Receipt{}, err
	}
	c.logger.Info("debit accepted", zap.String("key", key), zap.String("payment", out.PaymentID), zap.String("amount", amount.String()))
	return domain.Receipt{PaymentID: out.PaymentID, Message: out.Message, Balance: out.Balance}, nil
}

// Refund credits back the debit made under paymentKey. key identifies the
// refund itself.
func (c *Client) Refund(ctx context.Context, key, paymentKey string, amount decimal.Decimal) (domain.Receipt, error) {
	var out payResponse
	body := payRequest{Amount: json.Number(amount.String()), PaymentKey: paymentKey}
	if err := c.do(ctx, http.MethodPost, "/payments/refund", key, body, &out); err != nil {
		c.logger.Error("refund failed", zap.String("payment_key", paymentKey), zap.Error(err))
		return domain.Receipt{}, err
	}
	c.logger.Info("refund accepted", zap.String("payment_key", paymentKey), zap.String("amount", amount.String()))
	return domain.Receipt{PaymentID: out.PaymentID, Message: out.Message, Balance: out.Balance}, nil
}

func (c *Client) do(ctx context.Context, method, path, key string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrGatewayUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrGatewayUnavailable, err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s: status %d", domain.ErrGatewayUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &domain.DeclinedError{Reason: messageOf(raw, resp.StatusCode)}
	default:
		return fmt.Errorf("%w: %s %s: status %d: %s", domain.ErrGatewayUnavailable, method, path, resp.StatusCode, messageOf(raw, resp.StatusCode))
	}
}

func messageOf(raw []byte, status int) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return http.StatusText(status)
}

func isUnavailable(err error) bool {
	return errors.Is(err, domain.ErrGatewayUnavailable)
}
