package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	admindomain "github.com/tokomart/tokomart/internal/adminops/domain"
	auditdomain "github.com/tokomart/tokomart/internal/audit/domain"
	entitlementdomain "github.com/tokomart/tokomart/internal/entitlement/domain"
	"github.com/tokomart/tokomart/internal/shopcontext"
)

func (s *Server) ListEntitlements(c *gin.Context) {
	var req admindomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.adminSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) EntitlementSummary(c *gin.Context) {
	summary, err := s.adminSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) ToggleSuspension(c *gin.Context) {
	entitlementID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || entitlementID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req admindomain.ToggleSuspensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.adminSvc.ToggleSuspension(c.Request.Context(), entitlementID, *req.Suspend)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	action := "entitlement.restored"
	if resp.Suspended {
		action = "entitlement.suspended"
	}
	s.auditAdminAction(c, action, "entitlement", entitlementID.String(), map[string]any{
		"shop_id": resp.Entitlement.ShopID.String(),
	})

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GrantFree(c *gin.Context) {
	var req entitlementdomain.GrantFreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	snapshot, err := s.adminSvc.GrantFree(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAdminAction(c, "entitlement.granted", "entitlement", "", map[string]any{
		"shop_id":         req.ShopID.String(),
		"service_type":    req.ServiceType,
		"duration_months": req.DurationMonths,
	})

	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var req auditdomain.ListAuditLogRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) auditAdminAction(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	ctx := c.Request.Context()
	var actorID *string
	if userID, ok := shopcontext.UserIDFromContext(ctx); ok {
		value := userID.String()
		actorID = &value
	}
	var target *string
	if targetID != "" {
		target = &targetID
	}
	_ = s.auditSvc.AuditLog(ctx, nil, "admin", actorID, action, targetType, target, metadata)
}
