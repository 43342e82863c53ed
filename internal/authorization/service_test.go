package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupAuthzTest(t *testing.T, name string) (Service, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	assert.NoError(t, err)

	svc := NewService(Params{
		DB:       db,
		Log:      zaptest.NewLogger(t),
		Enforcer: enforcer,
	})

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	return svc, node
}

func TestAuthorize(t *testing.T) {
	svc, node := setupAuthzTest(t, "authz")
	ctx := context.Background()

	manager := node.Generate()
	owner := node.Generate()
	admin := node.Generate()
	stranger := node.Generate()

	assert.NoError(t, svc.GrantRole(ctx, manager, RoleManager))
	assert.NoError(t, svc.GrantRole(ctx, owner, RoleOwner))
	assert.NoError(t, svc.GrantRole(ctx, admin, RoleAdmin))

	t.Run("manager holds the product and order subset", func(t *testing.T) {
		assert.NoError(t, svc.Authorize(ctx, manager, ObjectProduct, ActionProductView))
		assert.NoError(t, svc.Authorize(ctx, manager, ObjectProduct, ActionProductEdit))
		assert.NoError(t, svc.Authorize(ctx, manager, ObjectOrder, ActionOrderView))
		assert.NoError(t, svc.Authorize(ctx, manager, ObjectOrder, ActionOrderEdit))
	})

	t.Run("manager never reaches owner territory", func(t *testing.T) {
		assert.ErrorIs(t, svc.Authorize(ctx, manager, ObjectEntitlement, ActionEntitlementPurchase), ErrForbidden)
		assert.ErrorIs(t, svc.Authorize(ctx, manager, ObjectManager, ActionManagerAssign), ErrForbidden)
		assert.ErrorIs(t, svc.Authorize(ctx, manager, ObjectShop, ActionShopSettings), ErrForbidden)
		assert.ErrorIs(t, svc.Authorize(ctx, manager, ObjectAdminPanel, ActionAdminPanelView), ErrForbidden)
	})

	t.Run("owner manages the entitlement and the slot", func(t *testing.T) {
		assert.NoError(t, svc.Authorize(ctx, owner, ObjectEntitlement, ActionEntitlementPurchase))
		assert.NoError(t, svc.Authorize(ctx, owner, ObjectManager, ActionManagerAssign))
		assert.ErrorIs(t, svc.Authorize(ctx, owner, ObjectAdminPanel, ActionAdminPanelAct), ErrForbidden)
	})

	t.Run("admin holds the console and audit log", func(t *testing.T) {
		assert.NoError(t, svc.Authorize(ctx, admin, ObjectAdminPanel, ActionAdminPanelView))
		assert.NoError(t, svc.Authorize(ctx, admin, ObjectAdminPanel, ActionAdminPanelAct))
		assert.NoError(t, svc.Authorize(ctx, admin, ObjectAuditLog, ActionAuditLogView))
	})

	t.Run("no role means no access", func(t *testing.T) {
		assert.ErrorIs(t, svc.Authorize(ctx, stranger, ObjectProduct, ActionProductView), ErrForbidden)
	})

	t.Run("revoking a role drops its capabilities", func(t *testing.T) {
		assert.NoError(t, svc.RevokeRole(ctx, manager, RoleManager))
		assert.ErrorIs(t, svc.Authorize(ctx, manager, ObjectProduct, ActionProductView), ErrForbidden)
	})

	t.Run("invalid inputs", func(t *testing.T) {
		assert.ErrorIs(t, svc.Authorize(ctx, 0, ObjectProduct, ActionProductView), ErrInvalidActor)
		assert.ErrorIs(t, svc.Authorize(ctx, owner, "  ", ActionProductView), ErrInvalidObject)
		assert.ErrorIs(t, svc.Authorize(ctx, owner, ObjectProduct, ""), ErrInvalidAction)
		assert.ErrorIs(t, svc.GrantRole(ctx, owner, "superuser"), ErrInvalidActor)
	})
}
