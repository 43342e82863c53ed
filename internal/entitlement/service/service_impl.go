package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tokomart/tokomart/internal/clock"
	"github.com/tokomart/tokomart/internal/config"
	entitlementdomain "github.com/tokomart/tokomart/internal/entitlement/domain"
	"github.com/tokomart/tokomart/internal/locks"
	"github.com/tokomart/tokomart/internal/payment"
	paymentdomain "github.com/tokomart/tokomart/internal/payment/domain"
	"github.com/tokomart/tokomart/internal/shopcontext"
)

const (
	lockTTL            = 15 * time.Second
	paymentHistorySize = 20
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	repo    entitlementdomain.Repository
	gateway paymentdomain.Gateway
	plans   *config.ServicePlanHolder
	metrics *payment.Metrics
	locker  *locks.Locker

	clearManagerOnSuspend bool
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    entitlementdomain.Repository
	Gateway paymentdomain.Gateway
	Plans   *config.ServicePlanHolder
	Config  config.Config
	Metrics *payment.Metrics `optional:"true"`
	Locker  *locks.Locker    `optional:"true"`
}

func NewService(p ServiceParam) entitlementdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("entitlement.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		gateway: p.Gateway,
		plans:   p.Plans,
		metrics: p.Metrics,
		locker:  p.Locker,

		clearManagerOnSuspend: p.Config.ClearManagerOnSuspend,
	}
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, req entitlementdomain.GetRequest) (*entitlementdomain.Snapshot, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, entitlementdomain.ErrInvalidShop
	}
	if !req.ServiceType.Valid() {
		return nil, entitlementdomain.ErrInvalidServiceType
	}

	entitlement, err := s.repo.FindByShop(ctx, s.db, shopID, req.ServiceType)
	if err != nil {
		return nil, err
	}

	payments, err := s.repo.ListPaymentsByShop(ctx, s.db, shopID, req.ServiceType, paymentHistorySize)
	if err != nil {
		return nil, err
	}

	snapshot := s.snapshot(entitlement)
	snapshot.Payments = payments
	return snapshot, nil
}

// CreatePurchase implements domain.Service.
func (s *Service) CreatePurchase(ctx context.Context, req entitlementdomain.CreatePurchaseRequest) (*entitlementdomain.CreatePurchaseResponse, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, entitlementdomain.ErrInvalidShop
	}
	if !req.ServiceType.Valid() {
		return nil, entitlementdomain.ErrInvalidServiceType
	}

	plan, ok := s.plans.Plan(string(req.ServiceType))
	if !ok {
		return nil, entitlementdomain.ErrInvalidServiceType
	}

	now := s.clock.Now()

	entitlement, err := s.repo.FindByShop(ctx, s.db, shopID, req.ServiceType)
	if err != nil {
		return nil, err
	}

	effective := entitlementdomain.EffectiveStatus(entitlement, now)
	switch {
	case effective == entitlementdomain.StatusSuspended:
		return nil, entitlementdomain.ErrInvalidTransition
	case req.IsRenewal && entitlement == nil:
		return nil, entitlementdomain.ErrNoActiveEntitlement
	case req.IsRenewal && effective == entitlementdomain.StatusActive &&
		entitlementdomain.DaysRemaining(entitlement, now) > plan.RenewWindowDays:
		return nil, entitlementdomain.ErrRenewalNotDue
	case !req.IsRenewal && effective == entitlementdomain.StatusActive:
		return nil, entitlementdomain.ErrAlreadyActive
	}

	pending, err := s.repo.FindPendingOrder(ctx, s.db, shopID, req.ServiceType)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, fmt.Errorf("%w: pending order %s exists", paymentdomain.ErrOrderCreateFailed, pending.ProviderOrderID)
	}

	amount := plan.Amount
	if req.IsRenewal {
		amount = plan.RenewalAmount
	}

	providerOrderID, err := s.gateway.CreateOrder(ctx, paymentdomain.CreateOrderRequest{
		ShopID:      shopID,
		ServiceType: string(req.ServiceType),
		Amount:      amount,
		Currency:    plan.Currency,
		IsRenewal:   req.IsRenewal,
	})
	s.metrics.ObserveOrderCreate(s.gateway.Provider(), err)
	if err != nil {
		s.log.Warn("provider order create failed",
			zap.String("shop_id", shopID.String()),
			zap.String("service_type", string(req.ServiceType)),
			zap.Error(err))
		return nil, err
	}

	order := &entitlementdomain.PaymentOrder{
		ID:              s.genID.Generate(),
		ShopID:          shopID,
		ServiceType:     req.ServiceType,
		ProviderOrderID: providerOrderID,
		Amount:          amount,
		Currency:        plan.Currency,
		IsRenewal:       req.IsRenewal,
		Status:          entitlementdomain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertOrder(ctx, s.db, order); err != nil {
		return nil, err
	}

	s.log.Info("payment order created",
		zap.String("shop_id", shopID.String()),
		zap.String("service_type", string(req.ServiceType)),
		zap.String("provider_order_id", providerOrderID),
		zap.Bool("is_renewal", req.IsRenewal))

	return &entitlementdomain.CreatePurchaseResponse{
		OrderID:  providerOrderID,
		Amount:   amount,
		Currency: plan.Currency,
	}, nil
}

// Activate implements domain.Service. The provider capture happens before
// the transaction; the unique index on provider_order_id plus the in-tx
// ledger re-check make settlement exactly-once even when two captures race.
func (s *Service) Activate(ctx context.Context, req entitlementdomain.ActivateRequest) (*entitlementdomain.Snapshot, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, entitlementdomain.ErrInvalidShop
	}
	if !req.ServiceType.Valid() {
		return nil, entitlementdomain.ErrInvalidServiceType
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, paymentdomain.ErrInvalidSession
	}

	lockKey := fmt.Sprintf("entitlement:%s:%s", shopID.String(), req.ServiceType)
	token, acquired, err := s.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		s.log.Warn("advisory lock unavailable", zap.String("key", lockKey), zap.Error(err))
	} else if !acquired {
		return nil, entitlementdomain.ErrOperationInProgress
	}
	defer func() {
		if err := s.locker.Release(ctx, lockKey, token); err != nil {
			s.log.Warn("advisory lock release failed", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	order, err := s.repo.FindOrderByProviderID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.ShopID != shopID || order.ServiceType != req.ServiceType {
		return nil, paymentdomain.ErrInvalidSession
	}

	existing, err := s.repo.FindPaymentByProviderOrderID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, paymentdomain.ErrAlreadyCaptured
	}

	result, err := s.gateway.CaptureOrder(ctx, orderID)
	s.metrics.ObserveCapture(s.gateway.Provider(), err)
	if err != nil {
		s.failOrderIfDeclined(ctx, order, err)
		s.log.Warn("provider capture failed",
			zap.String("shop_id", shopID.String()),
			zap.String("provider_order_id", orderID),
			zap.Error(err))
		return nil, err
	}

	var entitlement *entitlementdomain.Entitlement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByShopForUpdate(ctx, tx, shopID, req.ServiceType)
		if err != nil {
			return err
		}

		settled, err := s.repo.FindPaymentByProviderOrderID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if settled != nil {
			return paymentdomain.ErrAlreadyCaptured
		}

		now := s.clock.Now()
		entitlement, err = s.applyActivation(ctx, tx, locked, shopID, req.ServiceType, now, result)
		if err != nil {
			return err
		}

		record := &entitlementdomain.PaymentRecord{
			ID:              s.genID.Generate(),
			EntitlementID:   entitlement.ID,
			ShopID:          shopID,
			ServiceType:     req.ServiceType,
			ProviderOrderID: result.ProviderOrderID,
			Amount:          result.Amount,
			Currency:        result.Currency,
			PaymentMethod:   result.PaymentMethod,
			PayerEmail:      result.PayerEmail,
			IsRenewal:       order.IsRenewal,
			CapturedAt:      result.CapturedAt,
			CreatedAt:       now,
		}
		if err := s.repo.InsertPayment(ctx, tx, record); err != nil {
			return err
		}

		order.Status = entitlementdomain.OrderStatusCaptured
		order.UpdatedAt = now
		return s.repo.UpdateOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("entitlement activated",
		zap.String("shop_id", shopID.String()),
		zap.String("service_type", string(req.ServiceType)),
		zap.String("provider_order_id", orderID),
		zap.Bool("is_renewal", order.IsRenewal))

	return s.snapshot(entitlement), nil
}

// applyActivation creates or extends the locked record. A renewal inside the
// active period extends from the current end date; a lapsed or fresh record
// starts a new period at now.
func (s *Service) applyActivation(ctx context.Context, tx *gorm.DB, locked *entitlementdomain.Entitlement, shopID snowflake.ID, serviceType entitlementdomain.ServiceType, now time.Time, result paymentdomain.CaptureResult) (*entitlementdomain.Entitlement, error) {
	plan, ok := s.plans.Plan(string(serviceType))
	if !ok {
		return nil, entitlementdomain.ErrInvalidServiceType
	}

	if locked != nil && locked.Status == entitlementdomain.StatusSuspended {
		return nil, entitlementdomain.ErrInvalidTransition
	}

	if locked == nil {
		endAt := now.AddDate(0, plan.PeriodMonths, 0)
		entitlement := &entitlementdomain.Entitlement{
			ID:          s.genID.Generate(),
			ShopID:      shopID,
			ServiceType: serviceType,
			Status:      entitlementdomain.StatusActive,
			StartAt:     &now,
			EndAt:       &endAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		applyPaymentSnapshot(entitlement, result)
		if err := s.repo.Insert(ctx, tx, entitlement); err != nil {
			return nil, err
		}
		return entitlement, nil
	}

	if entitlementdomain.EffectiveStatus(locked, now) == entitlementdomain.StatusActive {
		endAt := locked.EndAt.AddDate(0, plan.PeriodMonths, 0)
		locked.EndAt = &endAt
	} else {
		endAt := now.AddDate(0, plan.PeriodMonths, 0)
		locked.StartAt = &now
		locked.EndAt = &endAt
	}
	locked.Status = entitlementdomain.StatusActive
	locked.UpdatedAt = now
	applyPaymentSnapshot(locked, result)
	if err := s.repo.Update(ctx, tx, locked); err != nil {
		return nil, err
	}
	return locked, nil
}

// GrantFree implements domain.Service.
func (s *Service) GrantFree(ctx context.Context, req entitlementdomain.GrantFreeRequest) (*entitlementdomain.Snapshot, error) {
	if req.ShopID == 0 {
		return nil, entitlementdomain.ErrInvalidShop
	}
	if !req.ServiceType.Valid() {
		return nil, entitlementdomain.ErrInvalidServiceType
	}
	if req.DurationMonths <= 0 {
		return nil, entitlementdomain.ErrInvalidDuration
	}

	var entitlement *entitlementdomain.Entitlement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByShopForUpdate(ctx, tx, req.ShopID, req.ServiceType)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		switch entitlementdomain.EffectiveStatus(locked, now) {
		case entitlementdomain.StatusActive:
			return entitlementdomain.ErrAlreadyActive
		case entitlementdomain.StatusSuspended:
			return entitlementdomain.ErrInvalidTransition
		}

		endAt := now.AddDate(0, req.DurationMonths, 0)
		if locked == nil {
			entitlement = &entitlementdomain.Entitlement{
				ID:          s.genID.Generate(),
				ShopID:      req.ShopID,
				ServiceType: req.ServiceType,
				Status:      entitlementdomain.StatusActive,
				StartAt:     &now,
				EndAt:       &endAt,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			applyGrantSnapshot(entitlement, now)
			return s.repo.Insert(ctx, tx, entitlement)
		}

		locked.Status = entitlementdomain.StatusActive
		locked.StartAt = &now
		locked.EndAt = &endAt
		locked.UpdatedAt = now
		applyGrantSnapshot(locked, now)
		entitlement = locked
		return s.repo.Update(ctx, tx, locked)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("entitlement granted",
		zap.String("shop_id", req.ShopID.String()),
		zap.String("service_type", string(req.ServiceType)),
		zap.Int("duration_months", req.DurationMonths))

	return s.snapshot(entitlement), nil
}

// Suspend implements domain.Service.
func (s *Service) Suspend(ctx context.Context, entitlementID snowflake.ID) (*entitlementdomain.Entitlement, error) {
	var entitlement *entitlementdomain.Entitlement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, entitlementID)
		if err != nil {
			return err
		}
		if locked == nil {
			return entitlementdomain.ErrEntitlementNotFound
		}

		now := s.clock.Now()
		if entitlementdomain.EffectiveStatus(locked, now) != entitlementdomain.StatusActive {
			return entitlementdomain.ErrInvalidTransition
		}

		locked.Status = entitlementdomain.StatusSuspended
		locked.SuspendedAt = &now
		locked.UpdatedAt = now
		if s.clearManagerOnSuspend {
			locked.AssignedManagerID = nil
			locked.ManagerAssignedAt = nil
			locked.ManagerAssignedBy = nil
		}
		entitlement = locked
		return s.repo.Update(ctx, tx, locked)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("entitlement suspended",
		zap.String("entitlement_id", entitlementID.String()),
		zap.String("shop_id", entitlement.ShopID.String()))

	return entitlement, nil
}

// Restore implements domain.Service. Restoration does not stretch the paid
// period; a suspension that outlived the end date lands on EXPIRED.
func (s *Service) Restore(ctx context.Context, entitlementID snowflake.ID) (*entitlementdomain.Entitlement, error) {
	var entitlement *entitlementdomain.Entitlement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, entitlementID)
		if err != nil {
			return err
		}
		if locked == nil {
			return entitlementdomain.ErrEntitlementNotFound
		}
		if locked.Status != entitlementdomain.StatusSuspended {
			return entitlementdomain.ErrNotSuspended
		}

		now := s.clock.Now()
		locked.SuspendedAt = nil
		locked.UpdatedAt = now
		if locked.EndAt != nil && !now.Before(*locked.EndAt) {
			locked.Status = entitlementdomain.StatusExpired
		} else {
			locked.Status = entitlementdomain.StatusActive
		}
		entitlement = locked
		return s.repo.Update(ctx, tx, locked)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("entitlement restored",
		zap.String("entitlement_id", entitlementID.String()),
		zap.String("status", string(entitlement.Status)))

	return entitlement, nil
}

// failOrderIfDeclined marks the pending order FAILED on terminal declines so
// the shop can start a fresh checkout. Approval-pending and timeout outcomes
// leave the order open for retry.
func (s *Service) failOrderIfDeclined(ctx context.Context, order *entitlementdomain.PaymentOrder, captureErr error) {
	switch {
	case captureErr == nil,
		errors.Is(captureErr, paymentdomain.ErrNotApproved),
		errors.Is(captureErr, paymentdomain.ErrCaptureTimeout),
		errors.Is(captureErr, paymentdomain.ErrAlreadyCaptured):
		return
	}

	order.Status = entitlementdomain.OrderStatusFailed
	order.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateOrder(ctx, s.db, order); err != nil {
		s.log.Warn("failed to mark order as failed",
			zap.String("provider_order_id", order.ProviderOrderID),
			zap.Error(err))
	}
}

func (s *Service) snapshot(entitlement *entitlementdomain.Entitlement) *entitlementdomain.Snapshot {
	now := s.clock.Now()
	renewWindowDays := 0
	if entitlement != nil {
		if plan, ok := s.plans.Plan(string(entitlement.ServiceType)); ok {
			renewWindowDays = plan.RenewWindowDays
		}
	}
	return &entitlementdomain.Snapshot{
		Entitlement:   entitlement,
		Status:        entitlementdomain.EffectiveStatus(entitlement, now),
		IsExpired:     entitlementdomain.EffectiveStatus(entitlement, now) == entitlementdomain.StatusExpired,
		DaysRemaining: entitlementdomain.DaysRemaining(entitlement, now),
		CanRenew:      entitlementdomain.CanRenew(entitlement, now, renewWindowDays),
	}
}

func applyPaymentSnapshot(entitlement *entitlementdomain.Entitlement, result paymentdomain.CaptureResult) {
	entitlement.LastPaymentMethod = result.PaymentMethod
	entitlement.LastPaymentAmount = result.Amount
	entitlement.LastPaymentCurrency = result.Currency
	capturedAt := result.CapturedAt
	entitlement.LastPaymentAt = &capturedAt
}

func applyGrantSnapshot(entitlement *entitlementdomain.Entitlement, now time.Time) {
	entitlement.LastPaymentMethod = entitlementdomain.PaymentMethodAdminGranted
	entitlement.LastPaymentAmount = 0
	entitlement.LastPaymentCurrency = ""
	entitlement.LastPaymentAt = &now
}
