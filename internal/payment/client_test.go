package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/domain"
)

var fastRetry = config.Retry{Attempts: 3, Base: time.Millisecond, Max: 5 * time.Millisecond}

func TestDebitSuccessSendsKeyAndAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/pay", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get(IdempotencyKeyHeader))

		var body map[string]json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "10.5", string(body["amount"]))

		_, _ = w.Write([]byte(`{"message":"Payment successful! Remaining balance: 4.5","paymentId":"p-1","balance":4.5}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), fastRetry, nil)
	receipt, err := c.Debit(context.Background(), "key-1", decimal.RequireFromString("10.50"))
	require.NoError(t, err)
	assert.Equal(t, "p-1", receipt.PaymentID)
	assert.True(t, receipt.Balance.Equal(decimal.RequireFromString("4.5")))
}

func TestDebitDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"message":"Insufficient funds"}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), fastRetry, nil)
	_, err := c.Debit(context.Background(), "k", decimal.NewFromInt(1))

	var declined *domain.DeclinedError
	require.True(t, errors.As(err, &declined))
	assert.Equal(t, "Insufficient funds", declined.Reason)
	assert.ErrorIs(t, err, domain.ErrPaymentDeclined)
	assert.NotErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestDebitKeyConflictIsDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"idempotency key already used for a different request"}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), fastRetry, nil)
	_, err := c.Debit(context.Background(), "k", decimal.NewFromInt(1))

	var declined *domain.DeclinedError
	require.True(t, errors.As(err, &declined))
	assert.Equal(t, "idempotency key already used for a different request", declined.Reason)
}

func TestDebitServerErrorIsUnavailableAndNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), fastRetry, nil)
	_, err := c.Debit(context.Background(), "k", decimal.NewFromInt(1))
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDebitTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, &http.Client{Timeout: 20 * time.Millisecond}, fastRetry, nil)
	_, err := c.Debit(context.Background(), "k", decimal.NewFromInt(1))
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestBalanceRetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"balance":"12.34"}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), fastRetry, nil)
	balance, err := c.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("12.34")))
	assert.EqualValues(t, 3, calls.Load())
}

func TestRefundSendsPaymentKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/refund", r.URL.Path)
		assert.Equal(t, "refund-key", r.Header.Get(IdempotencyKeyHeader))
		var body payRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pay-key", body.PaymentKey)
		_, _ = w.Write([]byte(`{"message":"refunded","paymentId":"r-1","balance":10}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), fastRetry, nil)
	receipt, err := c.Refund(context.Background(), "refund-key", "pay-key", decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.Equal(t, "r-1", receipt.PaymentID)
}

func TestNewUsesClientCredentials(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"balance":1}`))
	}))
	defer api.Close()

	c := New(config.Payments{
		BaseURL:      api.URL,
		TokenURL:     tokenSrv.URL,
		ClientID:     "shop",
		ClientSecret: "secret",
		Scopes:       []string{"payments.read"},
		Timeout:      time.Second,
		Retry:        fastRetry,
	}, nil)

	balance, err := c.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1)))
}
