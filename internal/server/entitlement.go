package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	entitlementdomain "github.com/tokomart/tokomart/internal/entitlement/domain"
	"github.com/tokomart/tokomart/internal/shopcontext"
)

func (s *Server) GetMyEntitlement(c *gin.Context) {
	var req entitlementdomain.GetRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.ServiceType == "" {
		req.ServiceType = entitlementdomain.ServiceTypeStoreManager
	}

	snapshot, err := s.entitlementSvc.Get(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) CreatePurchase(c *gin.Context) {
	var req entitlementdomain.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.entitlementSvc.CreatePurchase(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "entitlement.purchase_created", "payment_order", resp.OrderID, map[string]any{
		"service_type": req.ServiceType,
		"is_renewal":   req.IsRenewal,
		"amount":       resp.Amount,
		"currency":     resp.Currency,
	})

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ActivateService(c *gin.Context) {
	var req entitlementdomain.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	snapshot, err := s.entitlementSvc.Activate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "entitlement.activated", "payment_order", req.OrderID, map[string]any{
		"service_type": req.ServiceType,
		"is_renewal":   req.IsRenewal,
	})

	c.JSON(http.StatusOK, snapshot)
}

// auditAction records a user-initiated mutation. Failures are logged by the
// audit service and never fail the request.
func (s *Server) auditAction(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	ctx := c.Request.Context()
	actorType := "user"
	var actorID *string
	if userID, ok := shopcontext.UserIDFromContext(ctx); ok {
		value := userID.String()
		actorID = &value
	}
	var target *string
	if targetID != "" {
		target = &targetID
	}
	_ = s.auditSvc.AuditLog(ctx, nil, actorType, actorID, action, targetType, target, metadata)
}
