package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAction), errors.Is(err, domain.ErrInvalidPage), errors.Is(err, domain.ErrInvalidSort):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCheckoutInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error onto the response. Unexpected errors are
// logged and hidden from the caller.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()

	var failed *domain.PaymentFailedError
	switch {
	case errors.As(err, &failed):
		msg = failed.Error()
	case errors.Is(err, domain.ErrCheckoutNotCommitted):
		msg = domain.ErrCheckoutNotCommitted.Error()
	case status == http.StatusInternalServerError:
		msg = "internal error"
	}
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
