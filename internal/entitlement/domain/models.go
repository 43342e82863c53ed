// Package domain defines the entitlement records, payment ledger, and the
// service contract of the subscription lifecycle core.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ServiceType identifies a purchasable add-on service.
type ServiceType string

const (
	ServiceTypeStoreManager ServiceType = "store_manager"
	ServiceTypeSellerPlan   ServiceType = "seller_plan"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceTypeStoreManager, ServiceTypeSellerPlan:
		return true
	}
	return false
}

// Status is the stored lifecycle state of an entitlement. The absence of a
// record reads as StatusNone; stored ACTIVE records whose period has elapsed
// read as EXPIRED through EffectiveStatus.
type Status string

const (
	StatusNone      Status = "NONE"
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusSuspended Status = "SUSPENDED"
)

// Payment methods recorded on the entitlement snapshot.
const (
	PaymentMethodPayPal       = "paypal"
	PaymentMethodAdminGranted = "admin_granted"
)

// Entitlement is one shop's subscription to one service type. At most one
// row exists per (shop_id, service_type).
type Entitlement struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID      snowflake.ID `gorm:"not null;uniqueIndex:idx_entitlements_shop_service" json:"shop_id"`
	ServiceType ServiceType  `gorm:"type:varchar(32);not null;uniqueIndex:idx_entitlements_shop_service" json:"service_type"`
	Status      Status       `gorm:"type:varchar(16);not null" json:"status"`

	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	SuspendedAt *time.Time `json:"suspended_at,omitempty"`

	AssignedManagerID *snowflake.ID `gorm:"index" json:"assigned_manager_id,omitempty"`
	ManagerAssignedAt *time.Time    `json:"manager_assigned_at,omitempty"`
	ManagerAssignedBy *snowflake.ID `json:"manager_assigned_by,omitempty"`

	// Last successful payment, denormalized for display.
	LastPaymentMethod   string     `gorm:"type:varchar(32)" json:"last_payment_method,omitempty"`
	LastPaymentAmount   int64      `json:"last_payment_amount,omitempty"`
	LastPaymentCurrency string     `gorm:"type:varchar(8)" json:"last_payment_currency,omitempty"`
	LastPaymentAt       *time.Time `json:"last_payment_at,omitempty"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Entitlement) TableName() string {
	return "service_entitlements"
}

// PaymentRecord is one captured payment. The unique provider order id is the
// hard guarantee that a provider order settles at most once.
type PaymentRecord struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	EntitlementID   snowflake.ID `gorm:"not null;index" json:"entitlement_id"`
	ShopID          snowflake.ID `gorm:"not null;index" json:"shop_id"`
	ServiceType     ServiceType  `gorm:"type:varchar(32);not null" json:"service_type"`
	ProviderOrderID string       `gorm:"type:varchar(64);not null;uniqueIndex" json:"provider_order_id"`
	Amount          int64        `json:"amount"`
	Currency        string       `gorm:"type:varchar(8)" json:"currency"`
	PaymentMethod   string       `gorm:"type:varchar(32)" json:"payment_method"`
	PayerEmail      string       `gorm:"type:varchar(255)" json:"payer_email,omitempty"`
	IsRenewal       bool         `json:"is_renewal"`
	CapturedAt      time.Time    `json:"captured_at"`
	CreatedAt       time.Time    `json:"created_at"`
}

func (PaymentRecord) TableName() string {
	return "service_payments"
}

// OrderStatus tracks a provider order between creation and settlement.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusCaptured OrderStatus = "CAPTURED"
	OrderStatusFailed   OrderStatus = "FAILED"
)

// PaymentOrder is a provider-side order awaiting buyer approval. Activation
// only honors order ids minted here for the same shop and service.
type PaymentOrder struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID          snowflake.ID `gorm:"not null;index:idx_payment_orders_shop_service" json:"shop_id"`
	ServiceType     ServiceType  `gorm:"type:varchar(32);not null;index:idx_payment_orders_shop_service" json:"service_type"`
	ProviderOrderID string       `gorm:"type:varchar(64);not null;uniqueIndex" json:"provider_order_id"`
	Amount          int64        `json:"amount"`
	Currency        string       `gorm:"type:varchar(8)" json:"currency"`
	IsRenewal       bool         `json:"is_renewal"`
	Status          OrderStatus  `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (PaymentOrder) TableName() string {
	return "service_payment_orders"
}

var (
	ErrInvalidShop         = errors.New("invalid_shop")
	ErrInvalidServiceType  = errors.New("invalid_service_type")
	ErrInvalidDuration     = errors.New("invalid_duration")
	ErrEntitlementNotFound = errors.New("entitlement_not_found")
	ErrNoActiveEntitlement = errors.New("no_active_entitlement")
	ErrAlreadyActive       = errors.New("entitlement_already_active")
	ErrRenewalNotDue       = errors.New("renewal_not_due")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrNotSuspended        = errors.New("entitlement_not_suspended")
	ErrAlreadyAssigned     = errors.New("already_assigned")
	ErrNoManagerAssigned   = errors.New("no_manager_assigned")
	ErrOperationInProgress = errors.New("operation_in_progress")
)
