package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	admindomain "github.com/tokomart/tokomart/internal/adminops/domain"
	auditdomain "github.com/tokomart/tokomart/internal/audit/domain"
	"github.com/tokomart/tokomart/internal/authorization"
	entitlementdomain "github.com/tokomart/tokomart/internal/entitlement/domain"
	paymentdomain "github.com/tokomart/tokomart/internal/payment/domain"
	userdomain "github.com/tokomart/tokomart/internal/userdirectory/domain"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ErrorHandlingMiddleware renders the last handler error as the stable
// {error:{code,message}} payload clients key their messaging on.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	// Payment taxonomy. Codes are closed: clients match on them.
	case errors.Is(err, paymentdomain.ErrPaymentDeclined):
		return http.StatusPaymentRequired, errorPayload{Code: "PAYMENT_DECLINED", Message: "payment was declined"}
	case errors.Is(err, paymentdomain.ErrInsufficientFunds):
		return http.StatusPaymentRequired, errorPayload{Code: "INSUFFICIENT_FUNDS", Message: "insufficient funds"}
	case errors.Is(err, paymentdomain.ErrCardExpired):
		return http.StatusPaymentRequired, errorPayload{Code: "CARD_EXPIRED", Message: "card has expired"}
	case errors.Is(err, paymentdomain.ErrNotApproved):
		return http.StatusPaymentRequired, errorPayload{Code: "NOT_APPROVED", Message: "order has not been approved"}
	case errors.Is(err, paymentdomain.ErrAlreadyCaptured):
		return http.StatusConflict, errorPayload{Code: "ALREADY_CAPTURED", Message: "order was already captured"}
	case errors.Is(err, paymentdomain.ErrOrderCreateFailed):
		return http.StatusBadGateway, errorPayload{Code: "ORDER_CREATE_FAILED", Message: "could not create payment order"}
	case errors.Is(err, paymentdomain.ErrInvalidSession):
		return http.StatusBadRequest, errorPayload{Code: "INVALID_SESSION", Message: "payment session is invalid"}
	case errors.Is(err, paymentdomain.ErrCaptureTimeout):
		return http.StatusGatewayTimeout, errorPayload{Code: "CAPTURE_TIMEOUT", Message: "payment capture timed out"}

	// Entitlement lifecycle.
	case errors.Is(err, entitlementdomain.ErrNoActiveEntitlement):
		return http.StatusConflict, errorPayload{Code: "NO_ACTIVE_ENTITLEMENT", Message: "no active service entitlement"}
	case errors.Is(err, entitlementdomain.ErrAlreadyAssigned):
		return http.StatusConflict, errorPayload{Code: "ALREADY_ASSIGNED", Message: "a manager is already assigned"}
	case errors.Is(err, entitlementdomain.ErrNoManagerAssigned):
		return http.StatusNotFound, errorPayload{Code: "NO_MANAGER_ASSIGNED", Message: "no manager is assigned"}
	case errors.Is(err, entitlementdomain.ErrAlreadyActive):
		return http.StatusConflict, errorPayload{Code: "ALREADY_ACTIVE", Message: "service is already active"}
	case errors.Is(err, entitlementdomain.ErrRenewalNotDue):
		return http.StatusConflict, errorPayload{Code: "RENEWAL_NOT_DUE", Message: "renewal window has not opened"}
	case errors.Is(err, entitlementdomain.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{Code: "INVALID_TRANSITION", Message: "operation not allowed in current state"}
	case errors.Is(err, entitlementdomain.ErrNotSuspended):
		return http.StatusConflict, errorPayload{Code: "NOT_SUSPENDED", Message: "entitlement is not suspended"}
	case errors.Is(err, entitlementdomain.ErrOperationInProgress):
		return http.StatusConflict, errorPayload{Code: "OPERATION_IN_PROGRESS", Message: "another operation is in progress"}
	case errors.Is(err, entitlementdomain.ErrEntitlementNotFound):
		return http.StatusNotFound, errorPayload{Code: "NOT_FOUND", Message: "entitlement not found"}
	case errors.Is(err, entitlementdomain.ErrInvalidShop):
		return http.StatusBadRequest, errorPayload{Code: "INVALID_SHOP", Message: "shop context is missing or invalid"}
	case errors.Is(err, entitlementdomain.ErrInvalidServiceType):
		return http.StatusBadRequest, errorPayload{Code: "INVALID_SERVICE_TYPE", Message: "unknown service type"}
	case errors.Is(err, entitlementdomain.ErrInvalidDuration):
		return http.StatusBadRequest, errorPayload{Code: "INVALID_DURATION", Message: "duration must be positive"}

	// User directory.
	case errors.Is(err, userdomain.ErrEmailTaken):
		return http.StatusConflict, errorPayload{Code: "EMAIL_TAKEN", Message: "email is already registered"}
	case errors.Is(err, userdomain.ErrUserNotFound):
		return http.StatusNotFound, errorPayload{Code: "USER_NOT_FOUND", Message: "user not found"}
	case errors.Is(err, userdomain.ErrInvalidEmail):
		return http.StatusBadRequest, errorPayload{Code: "INVALID_EMAIL", Message: "email is invalid"}
	case errors.Is(err, userdomain.ErrInvalidPassword):
		return http.StatusBadRequest, errorPayload{Code: "INVALID_PASSWORD", Message: "password does not meet requirements"}

	// Admin console.
	case errors.Is(err, admindomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidPageToken):
		return http.StatusBadRequest, errorPayload{Code: "INVALID_PAGE_TOKEN", Message: "page token is invalid"}
	case errors.Is(err, admindomain.ErrInvalidShopID):
		return http.StatusBadRequest, errorPayload{Code: "INVALID_SHOP", Message: "shop id is invalid"}
	case errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return http.StatusBadRequest, errorPayload{Code: "INVALID_TIME_RANGE", Message: "time range is invalid"}

	// Access control.
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{Code: "UNAUTHORIZED", Message: "authentication required"}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{Code: "FORBIDDEN", Message: "not allowed"}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{Code: "INVALID_REQUEST", Message: "invalid request"}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{Code: "NOT_FOUND", Message: "not found"}
	}

	return http.StatusInternalServerError, errorPayload{Code: "INTERNAL", Message: "internal server error"}
}
