package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/tokomart/tokomart/internal/audit/domain"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID snowflake.ID, object, action string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := subjectFor(userID)
	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, userID, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) GrantRole(ctx context.Context, userID snowflake.ID, role string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	roleName, err := roleSubject(role)
	if err != nil {
		return err
	}
	_, err = s.enforcer.AddGroupingPolicy(subjectFor(userID), roleName)
	return err
}

func (s *ServiceImpl) RevokeRole(ctx context.Context, userID snowflake.ID, role string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	roleName, err := roleSubject(role)
	if err != nil {
		return err
	}
	_, err = s.enforcer.RemoveGroupingPolicy(subjectFor(userID), roleName)
	return err
}

func subjectFor(userID snowflake.ID) string {
	return fmt.Sprintf("user:%s", userID.String())
}

func roleSubject(role string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleOwner:
		return "role:owner", nil
	case RoleManager:
		return "role:manager", nil
	case RoleAdmin:
		return "role:admin", nil
	}
	return "", ErrInvalidActor
}

func (s *ServiceImpl) auditDenied(ctx context.Context, userID snowflake.ID, object, action string) {
	if s.auditSvc == nil {
		return
	}
	actorID := userID.String()
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, nil, "user", &actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Managers only touch products and orders.
		{"role:manager", ObjectProduct, ActionProductView},
		{"role:manager", ObjectProduct, ActionProductEdit},
		{"role:manager", ObjectOrder, ActionOrderView},
		{"role:manager", ObjectOrder, ActionOrderEdit},

		// Owner permissions
		{"role:owner", ObjectProduct, ActionProductView},
		{"role:owner", ObjectProduct, ActionProductEdit},
		{"role:owner", ObjectOrder, ActionOrderView},
		{"role:owner", ObjectOrder, ActionOrderEdit},
		{"role:owner", ObjectEntitlement, ActionEntitlementView},
		{"role:owner", ObjectEntitlement, ActionEntitlementPurchase},
		{"role:owner", ObjectManager, ActionManagerAssign},
		{"role:owner", ObjectManager, ActionManagerRemove},
		{"role:owner", ObjectManager, ActionManagerView},
		{"role:owner", ObjectShop, ActionShopSettings},

		// Admin permissions
		{"role:admin", ObjectAdminPanel, ActionAdminPanelView},
		{"role:admin", ObjectAdminPanel, ActionAdminPanelAct},
		{"role:admin", ObjectEntitlement, ActionEntitlementView},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
