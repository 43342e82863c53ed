package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	admindomain "github.com/tokomart/tokomart/internal/adminops/domain"
	"github.com/tokomart/tokomart/internal/clock"
	entitlementdomain "github.com/tokomart/tokomart/internal/entitlement/domain"
	userdomain "github.com/tokomart/tokomart/internal/userdirectory/domain"
	"github.com/tokomart/tokomart/pkg/db/pagination"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock           clock.Clock
	entitlementRepo entitlementdomain.Repository
	entitlementSvc  entitlementdomain.Service
	userRepo        userdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	EntitlementRepo entitlementdomain.Repository
	EntitlementSvc  entitlementdomain.Service
	UserRepo        userdomain.Repository
}

func NewService(p ServiceParam) admindomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("adminops.service"),

		clock:           p.Clock,
		entitlementRepo: p.EntitlementRepo,
		entitlementSvc:  p.EntitlementSvc,
		userRepo:        p.UserRepo,
	}
}

// Summary implements domain.Service.
func (s *Service) Summary(ctx context.Context) (*admindomain.Summary, error) {
	now := s.clock.Now()

	var counts struct {
		Total       int64 `gorm:"column:total"`
		Active      int64 `gorm:"column:active"`
		Expired     int64 `gorm:"column:expired"`
		Suspended   int64 `gorm:"column:suspended"`
		WithManager int64 `gorm:"column:with_manager"`
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN status = 'ACTIVE' AND end_at > ? THEN 1 END) AS active,
			COUNT(CASE WHEN status = 'EXPIRED' OR (status = 'ACTIVE' AND end_at <= ?) THEN 1 END) AS expired,
			COUNT(CASE WHEN status = 'SUSPENDED' THEN 1 END) AS suspended,
			COUNT(assigned_manager_id) AS with_manager
		 FROM service_entitlements`,
		now, now,
	).Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	var revenue struct {
		Total int64 `gorm:"column:total"`
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS total FROM service_payments`,
	).Scan(&revenue).Error
	if err != nil {
		return nil, err
	}

	return &admindomain.Summary{
		Total:        counts.Total,
		Active:       counts.Active,
		Expired:      counts.Expired,
		Suspended:    counts.Suspended,
		WithManager:  counts.WithManager,
		TotalRevenue: revenue.Total,
	}, nil
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, req admindomain.ListRequest) (*admindomain.ListResponse, error) {
	filter := entitlementdomain.ListFilter{
		ServiceType: req.ServiceType,
		Status:      req.Status,
	}
	if shopID := strings.TrimSpace(req.ShopID); shopID != "" {
		parsed, err := snowflake.ParseString(shopID)
		if err != nil || parsed == 0 {
			return nil, admindomain.ErrInvalidShopID
		}
		filter.ShopID = parsed
	}

	var cursor snowflake.ID
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, admindomain.ErrInvalidPageToken
		}
		cursor, err = snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || cursor == 0 {
			return nil, admindomain.ErrInvalidPageToken
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	entitlements, err := s.entitlementRepo.List(ctx, s.db, filter, cursor, pageSize+1)
	if err != nil {
		return nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(entitlements, pageSize, func(item entitlementdomain.Entitlement) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(entitlements) > pageSize {
		entitlements = entitlements[:pageSize]
	}

	now := s.clock.Now()
	items := make([]admindomain.ListItem, 0, len(entitlements))
	for _, entitlement := range entitlements {
		item := admindomain.ListItem{
			Entitlement:     entitlement,
			EffectiveStatus: entitlementdomain.EffectiveStatus(&entitlement, now),
			DaysRemaining:   entitlementdomain.DaysRemaining(&entitlement, now),
		}
		if entitlement.AssignedManagerID != nil {
			if user, err := s.userRepo.FindByID(ctx, s.db, *entitlement.AssignedManagerID); err == nil && user != nil {
				item.ManagerEmail = user.Email
			}
		}
		items = append(items, item)
	}

	resp := &admindomain.ListResponse{Entitlements: items}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// ToggleSuspension implements domain.Service. The caller states the desired
// suspension state; an entitlement already in that state is left untouched so
// a retried request cannot undo the first one.
func (s *Service) ToggleSuspension(ctx context.Context, entitlementID snowflake.ID, suspend bool) (*admindomain.ToggleSuspensionResponse, error) {
	entitlement, err := s.entitlementRepo.FindByID(ctx, s.db, entitlementID)
	if err != nil {
		return nil, err
	}
	if entitlement == nil {
		return nil, entitlementdomain.ErrEntitlementNotFound
	}

	alreadySuspended := entitlement.Status == entitlementdomain.StatusSuspended
	if suspend == alreadySuspended {
		return &admindomain.ToggleSuspensionResponse{Entitlement: entitlement, Suspended: alreadySuspended}, nil
	}

	if suspend {
		suspended, err := s.entitlementSvc.Suspend(ctx, entitlementID)
		if err != nil {
			return nil, err
		}
		return &admindomain.ToggleSuspensionResponse{Entitlement: suspended, Suspended: true}, nil
	}

	restored, err := s.entitlementSvc.Restore(ctx, entitlementID)
	if err != nil {
		return nil, err
	}
	return &admindomain.ToggleSuspensionResponse{Entitlement: restored, Suspended: false}, nil
}

// GrantFree implements domain.Service.
func (s *Service) GrantFree(ctx context.Context, req entitlementdomain.GrantFreeRequest) (*entitlementdomain.Snapshot, error) {
	return s.entitlementSvc.GrantFree(ctx, req)
}
