// Package authorization enforces the capability boundary between shop
// owners, delegated store managers, and platform admins.
package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Roles a subject can hold.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Objects guarded by policy.
const (
	ObjectProduct     = "product"
	ObjectOrder       = "order"
	ObjectEntitlement = "entitlement"
	ObjectManager     = "manager"
	ObjectAdminPanel  = "admin_panel"
	ObjectAuditLog    = "audit_log"
	ObjectShop        = "shop"
)

// Actions. Managers hold only the product/order subset; everything else is
// owner or admin territory.
const (
	ActionProductView = "product.view"
	ActionProductEdit = "product.edit"
	ActionOrderView   = "order.view"
	ActionOrderEdit   = "order.edit"

	ActionEntitlementView     = "entitlement.view"
	ActionEntitlementPurchase = "entitlement.purchase"
	ActionManagerAssign       = "manager.assign"
	ActionManagerRemove       = "manager.remove"
	ActionManagerView         = "manager.view"
	ActionShopSettings        = "shop.settings"

	ActionAdminPanelView = "admin_panel.view"
	ActionAdminPanelAct  = "admin_panel.act"
	ActionAuditLogView   = "audit_log.view"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	// Authorize returns nil when the user may perform action on object.
	Authorize(ctx context.Context, userID snowflake.ID, object, action string) error

	// GrantRole binds a user to a role.
	GrantRole(ctx context.Context, userID snowflake.ID, role string) error

	// RevokeRole removes a user's role binding.
	RevokeRole(ctx context.Context, userID snowflake.ID, role string) error
}
