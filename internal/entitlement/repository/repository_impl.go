package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tokomart/tokomart/internal/entitlement/domain"
)

type repository struct{}

// Provide constructs the gorm-backed entitlement repository.
func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Entitlement, error) {
	var entitlement domain.Entitlement
	err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&entitlement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entitlement, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Entitlement, error) {
	var entitlement domain.Entitlement
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entitlement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entitlement, nil
}

func (r *repository) FindByShop(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, serviceType domain.ServiceType) (*domain.Entitlement, error) {
	var entitlement domain.Entitlement
	err := tx.WithContext(ctx).
		Where("shop_id = ? AND service_type = ?", shopID, serviceType).
		First(&entitlement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entitlement, nil
}

func (r *repository) FindByShopForUpdate(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, serviceType domain.ServiceType) (*domain.Entitlement, error) {
	var entitlement domain.Entitlement
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("shop_id = ? AND service_type = ?", shopID, serviceType).
		First(&entitlement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entitlement, nil
}

func (r *repository) FindByManager(ctx context.Context, tx *gorm.DB, managerID snowflake.ID) ([]domain.Entitlement, error) {
	var entitlements []domain.Entitlement
	err := tx.WithContext(ctx).
		Where("assigned_manager_id = ?", managerID).
		Find(&entitlements).Error
	if err != nil {
		return nil, err
	}
	return entitlements, nil
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, entitlement *domain.Entitlement) error {
	return tx.WithContext(ctx).Create(entitlement).Error
}

func (r *repository) Update(ctx context.Context, tx *gorm.DB, entitlement *domain.Entitlement) error {
	return tx.WithContext(ctx).Save(entitlement).Error
}

func (r *repository) List(ctx context.Context, tx *gorm.DB, filter domain.ListFilter, cursor snowflake.ID, limit int) ([]domain.Entitlement, error) {
	query := tx.WithContext(ctx).Model(&domain.Entitlement{})
	if filter.ServiceType != "" {
		query = query.Where("service_type = ?", filter.ServiceType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ShopID != 0 {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if cursor != 0 {
		query = query.Where("id > ?", cursor)
	}

	var entitlements []domain.Entitlement
	err := query.Order("id ASC").Limit(limit).Find(&entitlements).Error
	if err != nil {
		return nil, err
	}
	return entitlements, nil
}

func (r *repository) InsertOrder(ctx context.Context, tx *gorm.DB, order *domain.PaymentOrder) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *repository) UpdateOrder(ctx context.Context, tx *gorm.DB, order *domain.PaymentOrder) error {
	return tx.WithContext(ctx).Save(order).Error
}

func (r *repository) FindOrderByProviderID(ctx context.Context, tx *gorm.DB, providerOrderID string) (*domain.PaymentOrder, error) {
	var order domain.PaymentOrder
	err := tx.WithContext(ctx).
		Where("provider_order_id = ?", providerOrderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindPendingOrder(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, serviceType domain.ServiceType) (*domain.PaymentOrder, error) {
	var order domain.PaymentOrder
	err := tx.WithContext(ctx).
		Where("shop_id = ? AND service_type = ? AND status = ?", shopID, serviceType, domain.OrderStatusPending).
		Order("created_at DESC").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) InsertPayment(ctx context.Context, tx *gorm.DB, payment *domain.PaymentRecord) error {
	return tx.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPaymentByProviderOrderID(ctx context.Context, tx *gorm.DB, providerOrderID string) (*domain.PaymentRecord, error) {
	var payment domain.PaymentRecord
	err := tx.WithContext(ctx).
		Where("provider_order_id = ?", providerOrderID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListPaymentsByShop(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, serviceType domain.ServiceType, limit int) ([]domain.PaymentRecord, error) {
	var payments []domain.PaymentRecord
	err := tx.WithContext(ctx).
		Where("shop_id = ? AND service_type = ?", shopID, serviceType).
		Order("captured_at DESC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
