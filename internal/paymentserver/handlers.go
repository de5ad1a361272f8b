package paymentserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/ledger"
	"storefront/internal/logger"
	"storefront/internal/payment"
)

type handlers struct {
	ledger Ledger
}

type amountRequest struct {
	Amount     *decimal.Decimal `json:"amount"`
	PaymentKey string           `json:"paymentKey"`
}

func (h *handlers) balance(c *gin.Context) {
	balance, err := h.ledger.Balance(c.Request.Context(), accountFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *handlers) pay(c *gin.Context) {
	key, req, ok := bindPayment(c)
	if !ok {
		return
	}
	receipt, err := h.ledger.Debit(c.Request.Context(), accountFrom(c), key, *req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *handlers) refund(c *gin.Context) {
	key, req, ok := bindPayment(c)
	if !ok {
		return
	}
	if req.PaymentKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "paymentKey is required"})
		return
	}
	receipt, err := h.ledger.Refund(c.Request.Context(), accountFrom(c), key, req.PaymentKey, *req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func bindPayment(c *gin.Context) (string, amountRequest, bool) {
	var req amountRequest
	key := strings.TrimSpace(c.GetHeader(payment.IdempotencyKeyHeader))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": payment.IdempotencyKeyHeader + " header is required"})
		return "", req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "amount is required"})
		return "", req, false
	}
	return key, req, true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, ledger.ErrPaymentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrKeyConflict), errors.Is(err, ledger.ErrAlreadyRefunded), errors.Is(err, ledger.ErrRefundMismatch):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("ledger failure", zap.Error(err))
		c.JSON(status, gin.H{"message": "internal error"})
		return
	}
	c.JSON(status, gin.H{"message": err.Error()})
}
