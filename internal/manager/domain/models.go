// Package domain defines the delegated-role assignment contract: binding a
// manager account to a shop's store-manager entitlement.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type AssignRequest struct {
	UserID snowflake.ID `json:"user_id" binding:"required"`
}

type CreateAndAssignRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ManagerInfo is the assignment as shown to the shop owner.
type ManagerInfo struct {
	UserID     snowflake.ID  `json:"user_id"`
	Email      string        `json:"email"`
	Name       string        `json:"name"`
	AssignedAt time.Time     `json:"assigned_at"`
	AssignedBy *snowflake.ID `json:"assigned_by,omitempty"`
}

type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// Service manages the one-manager slot of a shop's store-manager
// entitlement. Assignment requires an effectively active entitlement;
// removal is idempotent.
type Service interface {
	Assign(ctx context.Context, req AssignRequest) (*ManagerInfo, error)
	CreateAndAssign(ctx context.Context, req CreateAndAssignRequest) (*ManagerInfo, error)
	Remove(ctx context.Context) (*RemoveResponse, error)
	Get(ctx context.Context) (*ManagerInfo, error)
}
