package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter narrows admin listings.
type ListFilter struct {
	ServiceType ServiceType
	Status      Status
	ShopID      snowflake.ID
}

// Repository is the persistence boundary for entitlements, payment orders,
// and the payment ledger. Methods take the *gorm.DB so services can run them
// inside a transaction.
type Repository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Entitlement, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Entitlement, error)
	FindByShop(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, serviceType ServiceType) (*Entitlement, error)
	FindByShopForUpdate(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, serviceType ServiceType) (*Entitlement, error)
	FindByManager(ctx context.Context, tx *gorm.DB, managerID snowflake.ID) ([]Entitlement, error)
	Insert(ctx context.Context, tx *gorm.DB, entitlement *Entitlement) error
	Update(ctx context.Context, tx *gorm.DB, entitlement *Entitlement) error
	List(ctx context.Context, tx *gorm.DB, filter ListFilter, cursor snowflake.ID, limit int) ([]Entitlement, error)

	InsertOrder(ctx context.Context, tx *gorm.DB, order *PaymentOrder) error
	UpdateOrder(ctx context.Context, tx *gorm.DB, order *PaymentOrder) error
	FindOrderByProviderID(ctx context.Context, tx *gorm.DB, providerOrderID string) (*PaymentOrder, error)
	FindPendingOrder(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, serviceType ServiceType) (*PaymentOrder, error)

	InsertPayment(ctx context.Context, tx *gorm.DB, payment *PaymentRecord) error
	FindPaymentByProviderOrderID(ctx context.Context, tx *gorm.DB, providerOrderID string) (*PaymentRecord, error)
	ListPaymentsByShop(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, serviceType ServiceType, limit int) ([]PaymentRecord, error)
}
