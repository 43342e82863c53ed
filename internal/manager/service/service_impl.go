package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tokomart/tokomart/internal/authorization"
	"github.com/tokomart/tokomart/internal/clock"
	entitlementdomain "github.com/tokomart/tokomart/internal/entitlement/domain"
	managerdomain "github.com/tokomart/tokomart/internal/manager/domain"
	"github.com/tokomart/tokomart/internal/shopcontext"
	userdomain "github.com/tokomart/tokomart/internal/userdirectory/domain"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock           clock.Clock
	entitlementRepo entitlementdomain.Repository
	users           userdomain.Service
	authz           authorization.Service
}

type ServiceParam struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	EntitlementRepo entitlementdomain.Repository
	Users           userdomain.Service
	Authz           authorization.Service
}

func NewService(p ServiceParam) managerdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("manager.service"),

		clock:           p.Clock,
		entitlementRepo: p.EntitlementRepo,
		users:           p.Users,
		authz:           p.Authz,
	}
}

// Assign implements domain.Service. The entitlement row lock serializes
// assignment against concurrent assigns and lifecycle transitions.
func (s *Service) Assign(ctx context.Context, req managerdomain.AssignRequest) (*managerdomain.ManagerInfo, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, entitlementdomain.ErrInvalidShop
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	return s.bind(ctx, shopID, user)
}

// CreateAndAssign implements domain.Service.
func (s *Service) CreateAndAssign(ctx context.Context, req managerdomain.CreateAndAssignRequest) (*managerdomain.ManagerInfo, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, entitlementdomain.ErrInvalidShop
	}

	// Validate the entitlement before provisioning the account so a shop
	// without an active service never ends up with an orphan user.
	now := s.clock.Now()
	entitlement, err := s.entitlementRepo.FindByShop(ctx, s.db, shopID, entitlementdomain.ServiceTypeStoreManager)
	if err != nil {
		return nil, err
	}
	if entitlementdomain.EffectiveStatus(entitlement, now) != entitlementdomain.StatusActive {
		return nil, entitlementdomain.ErrNoActiveEntitlement
	}
	if entitlement.AssignedManagerID != nil {
		return nil, entitlementdomain.ErrAlreadyAssigned
	}

	user, err := s.users.Create(ctx, userdomain.CreateUserRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     userdomain.RoleManager,
	})
	if err != nil {
		return nil, err
	}

	return s.bind(ctx, shopID, user)
}

func (s *Service) bind(ctx context.Context, shopID snowflake.ID, user *userdomain.User) (*managerdomain.ManagerInfo, error) {
	var info *managerdomain.ManagerInfo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entitlement, err := s.entitlementRepo.FindByShopForUpdate(ctx, tx, shopID, entitlementdomain.ServiceTypeStoreManager)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if entitlementdomain.EffectiveStatus(entitlement, now) != entitlementdomain.StatusActive {
			return entitlementdomain.ErrNoActiveEntitlement
		}
		if entitlement.AssignedManagerID != nil {
			return entitlementdomain.ErrAlreadyAssigned
		}

		assignments, err := s.entitlementRepo.FindByManager(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if len(assignments) > 0 {
			return entitlementdomain.ErrAlreadyAssigned
		}

		managerID := user.ID
		entitlement.AssignedManagerID = &managerID
		entitlement.ManagerAssignedAt = &now
		if actorID, ok := shopcontext.UserIDFromContext(ctx); ok {
			entitlement.ManagerAssignedBy = &actorID
		} else {
			entitlement.ManagerAssignedBy = nil
		}
		entitlement.UpdatedAt = now
		if err := s.entitlementRepo.Update(ctx, tx, entitlement); err != nil {
			return err
		}

		info = &managerdomain.ManagerInfo{
			UserID:     user.ID,
			Email:      user.Email,
			Name:       user.Name,
			AssignedAt: now,
			AssignedBy: entitlement.ManagerAssignedBy,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.authz.GrantRole(ctx, user.ID, authorization.RoleManager); err != nil {
		s.log.Warn("failed to grant manager role",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}

	s.log.Info("manager assigned",
		zap.String("shop_id", shopID.String()),
		zap.String("user_id", user.ID.String()))

	return info, nil
}

// Remove implements domain.Service. Removing when no manager is bound is a
// no-op success so retried removals stay safe.
func (s *Service) Remove(ctx context.Context) (*managerdomain.RemoveResponse, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, entitlementdomain.ErrInvalidShop
	}

	var removedUserID *snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entitlement, err := s.entitlementRepo.FindByShopForUpdate(ctx, tx, shopID, entitlementdomain.ServiceTypeStoreManager)
		if err != nil {
			return err
		}
		if entitlement == nil || entitlement.AssignedManagerID == nil {
			return nil
		}

		removedUserID = entitlement.AssignedManagerID
		entitlement.AssignedManagerID = nil
		entitlement.ManagerAssignedAt = nil
		entitlement.ManagerAssignedBy = nil
		entitlement.UpdatedAt = s.clock.Now()
		return s.entitlementRepo.Update(ctx, tx, entitlement)
	})
	if err != nil {
		return nil, err
	}

	if removedUserID != nil {
		if err := s.authz.RevokeRole(ctx, *removedUserID, authorization.RoleManager); err != nil {
			s.log.Warn("failed to revoke manager role",
				zap.String("user_id", removedUserID.String()),
				zap.Error(err))
		}
		s.log.Info("manager removed",
			zap.String("shop_id", shopID.String()),
			zap.String("user_id", removedUserID.String()))
	}

	return &managerdomain.RemoveResponse{Removed: removedUserID != nil}, nil
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context) (*managerdomain.ManagerInfo, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, entitlementdomain.ErrInvalidShop
	}

	entitlement, err := s.entitlementRepo.FindByShop(ctx, s.db, shopID, entitlementdomain.ServiceTypeStoreManager)
	if err != nil {
		return nil, err
	}
	if entitlement == nil || entitlement.AssignedManagerID == nil {
		return nil, entitlementdomain.ErrNoManagerAssigned
	}

	user, err := s.users.GetByID(ctx, *entitlement.AssignedManagerID)
	if err != nil {
		return nil, err
	}

	info := &managerdomain.ManagerInfo{
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		AssignedBy: entitlement.ManagerAssignedBy,
	}
	if entitlement.ManagerAssignedAt != nil {
		info.AssignedAt = *entitlement.ManagerAssignedAt
	}
	return info, nil
}
