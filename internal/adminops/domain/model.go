// Package domain defines the admin console's read models and operations over
// the entitlement base.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	entitlementdomain "github.com/tokomart/tokomart/internal/entitlement/domain"
	"github.com/tokomart/tokomart/pkg/db/pagination"
)

// Summary aggregates the entitlement base at a point in time. Counts use the
// effective status; revenue counts captured payments only, never grants.
type Summary struct {
	Total        int64 `json:"total"`
	Active       int64 `json:"active"`
	Expired      int64 `json:"expired"`
	Suspended    int64 `json:"suspended"`
	WithManager  int64 `json:"with_manager"`
	TotalRevenue int64 `json:"total_revenue"`
}

type ListRequest struct {
	pagination.Pagination
	ServiceType entitlementdomain.ServiceType `form:"service_type"`
	Status      entitlementdomain.Status      `form:"status"`
	ShopID      string                        `form:"shop_id"`
}

// ListItem decorates an entitlement with its effective projection and the
// assigned manager's email for display.
type ListItem struct {
	entitlementdomain.Entitlement
	EffectiveStatus entitlementdomain.Status `json:"effective_status"`
	DaysRemaining   int                      `json:"days_remaining"`
	ManagerEmail    string                   `json:"manager_email,omitempty"`
}

type ListResponse struct {
	pagination.PageInfo
	Entitlements []ListItem `json:"entitlements"`
}

type ToggleSuspensionRequest struct {
	Suspend *bool `json:"suspend" binding:"required"`
}

type ToggleSuspensionResponse struct {
	Entitlement *entitlementdomain.Entitlement `json:"entitlement"`
	Suspended   bool                           `json:"suspended"`
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidShopID    = errors.New("invalid_shop_id")
)

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)

	// ToggleSuspension drives the entitlement to the requested suspension
	// state through the same lifecycle path owners use. Requesting the
	// state it is already in is a no-op, so retried calls are safe.
	ToggleSuspension(ctx context.Context, entitlementID snowflake.ID, suspend bool) (*ToggleSuspensionResponse, error)

	GrantFree(ctx context.Context, req entitlementdomain.GrantFreeRequest) (*entitlementdomain.Snapshot, error)
}
