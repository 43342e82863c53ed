package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Snapshot is the read model served to shop owners. Status and the derived
// fields are the effective projection at read time; the stored record is
// never mutated by a read.
type Snapshot struct {
	Entitlement *Entitlement `json:"entitlement,omitempty"`

	// Status is the effective status, not the stored one: a stored ACTIVE
	// past its end date reads as EXPIRED here while Entitlement.Status
	// still says ACTIVE.
	Status        Status          `json:"status"`
	IsExpired     bool            `json:"is_expired"`
	DaysRemaining int             `json:"days_remaining"`
	CanRenew      bool            `json:"can_renew"`
	Payments      []PaymentRecord `json:"payments,omitempty"`
}

type GetRequest struct {
	ServiceType ServiceType `form:"service_type" json:"service_type"`
}

type CreatePurchaseRequest struct {
	ServiceType ServiceType `json:"service_type" binding:"required"`
	IsRenewal   bool        `json:"is_renewal"`
}

type CreatePurchaseResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type ActivateRequest struct {
	ServiceType ServiceType `json:"service_type" binding:"required"`
	OrderID     string      `json:"order_id" binding:"required"`
	IsRenewal   bool        `json:"is_renewal"`
}

type GrantFreeRequest struct {
	ShopID         snowflake.ID `json:"shop_id" binding:"required"`
	ServiceType    ServiceType  `json:"service_type" binding:"required"`
	DurationMonths int          `json:"duration_months" binding:"required"`
}

// ManagerBinding is the manager slot of an entitlement, used by the
// delegated-role manager to read and mutate assignments under the same
// row lock the lifecycle operations take.
type ManagerBinding struct {
	EntitlementID snowflake.ID  `json:"entitlement_id"`
	ManagerID     *snowflake.ID `json:"manager_id,omitempty"`
	AssignedAt    *time.Time    `json:"assigned_at,omitempty"`
	AssignedBy    *snowflake.ID `json:"assigned_by,omitempty"`
}

// Service is the single lifecycle path. Every state change, whether owner or
// admin initiated, goes through these operations.
type Service interface {
	// Get returns the effective snapshot for the calling shop.
	Get(ctx context.Context, req GetRequest) (*Snapshot, error)

	// CreatePurchase opens a provider order for a purchase or renewal.
	CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*CreatePurchaseResponse, error)

	// Activate captures an approved provider order and applies the
	// resulting transition exactly once.
	Activate(ctx context.Context, req ActivateRequest) (*Snapshot, error)

	// GrantFree activates an entitlement without payment. Admin only.
	GrantFree(ctx context.Context, req GrantFreeRequest) (*Snapshot, error)

	// Suspend moves an active entitlement to SUSPENDED. Admin only.
	Suspend(ctx context.Context, entitlementID snowflake.ID) (*Entitlement, error)

	// Restore lifts a suspension, landing on ACTIVE or EXPIRED depending
	// on whether the paid period has elapsed.
	Restore(ctx context.Context, entitlementID snowflake.ID) (*Entitlement, error)
}
