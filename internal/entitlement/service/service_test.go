package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/tokomart/tokomart/internal/clock"
	"github.com/tokomart/tokomart/internal/config"
	entitlementdomain "github.com/tokomart/tokomart/internal/entitlement/domain"
	"github.com/tokomart/tokomart/internal/entitlement/repository"
	paymentdomain "github.com/tokomart/tokomart/internal/payment/domain"
	"github.com/tokomart/tokomart/internal/shopcontext"
)

type fakeGateway struct {
	orderID    string
	createErr  error
	captureErr error
	result     paymentdomain.CaptureResult
	captures   int32
	capturing  func()
}

func (g *fakeGateway) Provider() string { return "paypal" }

func (g *fakeGateway) CreateOrder(ctx context.Context, req paymentdomain.CreateOrderRequest) (string, error) {
	if g.createErr != nil {
		return "", g.createErr
	}
	return g.orderID, nil
}

func (g *fakeGateway) CaptureOrder(ctx context.Context, providerOrderID string) (paymentdomain.CaptureResult, error) {
	atomic.AddInt32(&g.captures, 1)
	if g.capturing != nil {
		g.capturing()
	}
	if g.captureErr != nil {
		return paymentdomain.CaptureResult{}, g.captureErr
	}
	result := g.result
	result.ProviderOrderID = providerOrderID
	return result, nil
}

func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)

	db.Exec(`CREATE TABLE IF NOT EXISTS service_entitlements (
		id BIGINT PRIMARY KEY,
		shop_id BIGINT NOT NULL,
		service_type TEXT NOT NULL,
		status TEXT NOT NULL,
		start_at TIMESTAMP,
		end_at TIMESTAMP,
		suspended_at TIMESTAMP,
		assigned_manager_id BIGINT,
		manager_assigned_at TIMESTAMP,
		manager_assigned_by BIGINT,
		last_payment_method TEXT,
		last_payment_amount BIGINT,
		last_payment_currency TEXT,
		last_payment_at TIMESTAMP,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (shop_id, service_type)
	)`)
	db.Exec(`CREATE TABLE IF NOT EXISTS service_payments (
		id BIGINT PRIMARY KEY,
		entitlement_id BIGINT NOT NULL,
		shop_id BIGINT NOT NULL,
		service_type TEXT NOT NULL,
		provider_order_id TEXT NOT NULL UNIQUE,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payer_email TEXT,
		is_renewal BOOLEAN NOT NULL DEFAULT FALSE,
		captured_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
	db.Exec(`CREATE TABLE IF NOT EXISTS service_payment_orders (
		id BIGINT PRIMARY KEY,
		shop_id BIGINT NOT NULL,
		service_type TEXT NOT NULL,
		provider_order_id TEXT NOT NULL UNIQUE,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		is_renewal BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)

	return db
}

func newTestService(t *testing.T, db *gorm.DB, fc *clock.FakeClock, gateway paymentdomain.Gateway) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	return &Service{
		db:      db,
		log:     zaptest.NewLogger(t),
		genID:   node,
		clock:   fc,
		repo:    repository.Provide(),
		gateway: gateway,
		plans:   config.NewStaticServicePlanHolder(config.DefaultServicePlanConfig()),
	}
}

func shopCtx(shopID snowflake.ID) context.Context {
	return shopcontext.WithShopID(context.Background(), int64(shopID))
}

func TestCreatePurchase(t *testing.T) {
	db := setupTestDB(t, "entitlement_create_purchase")
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	gateway := &fakeGateway{orderID: "ORDER-1"}
	svc := newTestService(t, db, fc, gateway)

	node, _ := snowflake.NewNode(2)
	shopID := node.Generate()
	ctx := shopCtx(shopID)

	t.Run("opens order for fresh purchase", func(t *testing.T) {
		resp, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
		})
		assert.NoError(t, err)
		assert.Equal(t, "ORDER-1", resp.OrderID)
		assert.Equal(t, int64(150_000), resp.Amount)
		assert.Equal(t, "USD", resp.Currency)
	})

	t.Run("rejects second purchase while order pending", func(t *testing.T) {
		_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
		})
		assert.ErrorIs(t, err, paymentdomain.ErrOrderCreateFailed)
	})

	t.Run("rejects unknown service type", func(t *testing.T) {
		_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
			ServiceType: "gold_plan",
		})
		assert.ErrorIs(t, err, entitlementdomain.ErrInvalidServiceType)
	})

	t.Run("rejects missing shop context", func(t *testing.T) {
		_, err := svc.CreatePurchase(context.Background(), entitlementdomain.CreatePurchaseRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
		})
		assert.ErrorIs(t, err, entitlementdomain.ErrInvalidShop)
	})

	t.Run("rejects renewal without entitlement", func(t *testing.T) {
		otherShop := node.Generate()
		_, err := svc.CreatePurchase(shopCtx(otherShop), entitlementdomain.CreatePurchaseRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			IsRenewal:   true,
		})
		assert.ErrorIs(t, err, entitlementdomain.ErrNoActiveEntitlement)
	})
}

func TestActivateLifecycle(t *testing.T) {
	db := setupTestDB(t, "entitlement_activate")
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	gateway := &fakeGateway{
		orderID: "ORDER-A",
		result: paymentdomain.CaptureResult{
			Amount:        150_000,
			Currency:      "USD",
			PaymentMethod: "paypal",
			PayerEmail:    "owner@example.com",
			CapturedAt:    fc.Now(),
		},
	}
	svc := newTestService(t, db, fc, gateway)

	node, _ := snowflake.NewNode(3)
	shopID := node.Generate()
	ctx := shopCtx(shopID)

	_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
		ServiceType: entitlementdomain.ServiceTypeStoreManager,
	})
	assert.NoError(t, err)

	t.Run("first activation creates active entitlement", func(t *testing.T) {
		snapshot, err := svc.Activate(ctx, entitlementdomain.ActivateRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			OrderID:     "ORDER-A",
		})
		assert.NoError(t, err)
		assert.Equal(t, entitlementdomain.StatusActive, snapshot.Status)
		assert.Equal(t, 30, snapshot.DaysRemaining)
		assert.False(t, snapshot.IsExpired)

		expectedEnd := fc.Now().AddDate(0, 1, 0)
		assert.Equal(t, expectedEnd, snapshot.Entitlement.EndAt.UTC())
		assert.Equal(t, "paypal", snapshot.Entitlement.LastPaymentMethod)
		assert.Equal(t, int64(150_000), snapshot.Entitlement.LastPaymentAmount)

		var count int64
		db.Raw(`SELECT COUNT(*) FROM service_payments WHERE provider_order_id = ?`, "ORDER-A").Scan(&count)
		assert.Equal(t, int64(1), count)

		var orderStatus string
		db.Raw(`SELECT status FROM service_payment_orders WHERE provider_order_id = ?`, "ORDER-A").Scan(&orderStatus)
		assert.Equal(t, string(entitlementdomain.OrderStatusCaptured), orderStatus)
	})

	t.Run("replaying the same order is rejected", func(t *testing.T) {
		_, err := svc.Activate(ctx, entitlementdomain.ActivateRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			OrderID:     "ORDER-A",
		})
		assert.ErrorIs(t, err, paymentdomain.ErrAlreadyCaptured)
	})

	t.Run("unknown order id is an invalid session", func(t *testing.T) {
		_, err := svc.Activate(ctx, entitlementdomain.ActivateRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			OrderID:     "ORDER-UNKNOWN",
		})
		assert.ErrorIs(t, err, paymentdomain.ErrInvalidSession)
	})

	t.Run("order minted for another shop is an invalid session", func(t *testing.T) {
		otherShop := node.Generate()
		_, err := svc.Activate(shopCtx(otherShop), entitlementdomain.ActivateRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			OrderID:     "ORDER-A",
		})
		assert.ErrorIs(t, err, paymentdomain.ErrInvalidSession)
	})
}

func TestActivateConcurrentCaptures(t *testing.T) {
	db := setupTestDB(t, "entitlement_activate_race")
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	// One pooled connection so the two settlement transactions queue on the
	// database instead of tripping sqlite's write lock.
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	var barrier sync.WaitGroup
	barrier.Add(2)
	gateway := &fakeGateway{
		orderID: "ORDER-RACE",
		result: paymentdomain.CaptureResult{
			Amount:        150_000,
			Currency:      "USD",
			PaymentMethod: "paypal",
			CapturedAt:    fc.Now(),
		},
		// Hold both callers at the provider until each has passed the
		// ledger pre-check, so the in-transaction re-check decides.
		capturing: func() {
			barrier.Done()
			barrier.Wait()
		},
	}
	svc := newTestService(t, db, fc, gateway)

	node, _ := snowflake.NewNode(9)
	shopID := node.Generate()
	ctx := shopCtx(shopID)

	_, err = svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
		ServiceType: entitlementdomain.ServiceTypeStoreManager,
	})
	assert.NoError(t, err)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.Activate(ctx, entitlementdomain.ActivateRequest{
				ServiceType: entitlementdomain.ServiceTypeStoreManager,
				OrderID:     "ORDER-RACE",
			})
			results <- err
		}()
	}

	var settled, replayed int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			settled++
		case errors.Is(err, paymentdomain.ErrAlreadyCaptured):
			replayed++
		default:
			t.Fatalf("unexpected activation error: %v", err)
		}
	}
	assert.Equal(t, 1, settled)
	assert.Equal(t, 1, replayed)

	var payments int64
	db.Raw(`SELECT COUNT(*) FROM service_payments WHERE provider_order_id = ?`, "ORDER-RACE").Scan(&payments)
	assert.Equal(t, int64(1), payments)

	var entitlements int64
	db.Raw(`SELECT COUNT(*) FROM service_entitlements WHERE shop_id = ?`, shopID).Scan(&entitlements)
	assert.Equal(t, int64(1), entitlements)
}

func TestRenewalMath(t *testing.T) {
	db := setupTestDB(t, "entitlement_renewal")
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	gateway := &fakeGateway{
		orderID: "ORDER-R1",
		result: paymentdomain.CaptureResult{
			Amount:        150_000,
			Currency:      "USD",
			PaymentMethod: "paypal",
			CapturedAt:    fc.Now(),
		},
	}
	svc := newTestService(t, db, fc, gateway)

	node, _ := snowflake.NewNode(4)
	shopID := node.Generate()
	ctx := shopCtx(shopID)

	_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
		ServiceType: entitlementdomain.ServiceTypeStoreManager,
	})
	assert.NoError(t, err)
	snapshot, err := svc.Activate(ctx, entitlementdomain.ActivateRequest{
		ServiceType: entitlementdomain.ServiceTypeStoreManager,
		OrderID:     "ORDER-R1",
	})
	assert.NoError(t, err)
	firstEnd := snapshot.Entitlement.EndAt.UTC()

	t.Run("renewal outside window is not due", func(t *testing.T) {
		_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			IsRenewal:   true,
		})
		assert.ErrorIs(t, err, entitlementdomain.ErrRenewalNotDue)
	})

	t.Run("in-window renewal extends from current end", func(t *testing.T) {
		// 5 days remain: inside the 7 day window.
		fc.Set(firstEnd.AddDate(0, 0, -5))
		gateway.orderID = "ORDER-R2"

		_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			IsRenewal:   true,
		})
		assert.NoError(t, err)

		renewed, err := svc.Activate(ctx, entitlementdomain.ActivateRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			OrderID:     "ORDER-R2",
			IsRenewal:   true,
		})
		assert.NoError(t, err)
		assert.Equal(t, firstEnd.AddDate(0, 1, 0), renewed.Entitlement.EndAt.UTC())
	})

	t.Run("lapsed renewal restarts from now", func(t *testing.T) {
		currentEnd := firstEnd.AddDate(0, 1, 0)
		lapsedNow := currentEnd.AddDate(0, 0, 10)
		fc.Set(lapsedNow)
		gateway.orderID = "ORDER-R3"

		_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			IsRenewal:   true,
		})
		assert.NoError(t, err)

		restarted, err := svc.Activate(ctx, entitlementdomain.ActivateRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			OrderID:     "ORDER-R3",
			IsRenewal:   true,
		})
		assert.NoError(t, err)
		assert.Equal(t, lapsedNow, restarted.Entitlement.StartAt.UTC())
		assert.Equal(t, lapsedNow.AddDate(0, 1, 0), restarted.Entitlement.EndAt.UTC())
	})
}

func TestCaptureFailures(t *testing.T) {
	db := setupTestDB(t, "entitlement_capture_failures")
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	gateway := &fakeGateway{orderID: "ORDER-F1"}
	svc := newTestService(t, db, fc, gateway)

	node, _ := snowflake.NewNode(5)
	shopID := node.Generate()
	ctx := shopCtx(shopID)

	_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
		ServiceType: entitlementdomain.ServiceTypeStoreManager,
	})
	assert.NoError(t, err)

	t.Run("not approved leaves order pending", func(t *testing.T) {
		gateway.captureErr = paymentdomain.ErrNotApproved
		_, err := svc.Activate(ctx, entitlementdomain.ActivateRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			OrderID:     "ORDER-F1",
		})
		assert.ErrorIs(t, err, paymentdomain.ErrNotApproved)

		var status string
		db.Raw(`SELECT status FROM service_payment_orders WHERE provider_order_id = ?`, "ORDER-F1").Scan(&status)
		assert.Equal(t, string(entitlementdomain.OrderStatusPending), status)
	})

	t.Run("decline marks order failed and creates nothing", func(t *testing.T) {
		gateway.captureErr = paymentdomain.ErrInsufficientFunds
		_, err := svc.Activate(ctx, entitlementdomain.ActivateRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
			OrderID:     "ORDER-F1",
		})
		assert.ErrorIs(t, err, paymentdomain.ErrInsufficientFunds)

		var status string
		db.Raw(`SELECT status FROM service_payment_orders WHERE provider_order_id = ?`, "ORDER-F1").Scan(&status)
		assert.Equal(t, string(entitlementdomain.OrderStatusFailed), status)

		var count int64
		db.Raw(`SELECT COUNT(*) FROM service_entitlements WHERE shop_id = ?`, shopID).Scan(&count)
		assert.Equal(t, int64(0), count)
	})
}

func TestSuspendRestore(t *testing.T) {
	db := setupTestDB(t, "entitlement_suspend")
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	gateway := &fakeGateway{
		orderID: "ORDER-S1",
		result: paymentdomain.CaptureResult{
			Amount:        150_000,
			Currency:      "USD",
			PaymentMethod: "paypal",
			CapturedAt:    fc.Now(),
		},
	}
	svc := newTestService(t, db, fc, gateway)

	node, _ := snowflake.NewNode(6)
	shopID := node.Generate()
	ctx := shopCtx(shopID)

	_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
		ServiceType: entitlementdomain.ServiceTypeStoreManager,
	})
	assert.NoError(t, err)
	snapshot, err := svc.Activate(ctx, entitlementdomain.ActivateRequest{
		ServiceType: entitlementdomain.ServiceTypeStoreManager,
		OrderID:     "ORDER-S1",
	})
	assert.NoError(t, err)
	entitlementID := snapshot.Entitlement.ID

	t.Run("suspend active entitlement", func(t *testing.T) {
		suspended, err := svc.Suspend(ctx, entitlementID)
		assert.NoError(t, err)
		assert.Equal(t, entitlementdomain.StatusSuspended, suspended.Status)
		assert.NotNil(t, suspended.SuspendedAt)
	})

	t.Run("suspending twice is rejected", func(t *testing.T) {
		_, err := svc.Suspend(ctx, entitlementID)
		assert.ErrorIs(t, err, entitlementdomain.ErrInvalidTransition)
	})

	t.Run("purchase while suspended is rejected", func(t *testing.T) {
		_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
		})
		assert.ErrorIs(t, err, entitlementdomain.ErrInvalidTransition)
	})

	t.Run("restore within period lands on active", func(t *testing.T) {
		restored, err := svc.Restore(ctx, entitlementID)
		assert.NoError(t, err)
		assert.Equal(t, entitlementdomain.StatusActive, restored.Status)
		assert.Nil(t, restored.SuspendedAt)
	})

	t.Run("restore after period lands on expired", func(t *testing.T) {
		_, err := svc.Suspend(ctx, entitlementID)
		assert.NoError(t, err)

		fc.Advance(90 * 24 * time.Hour)
		restored, err := svc.Restore(ctx, entitlementID)
		assert.NoError(t, err)
		assert.Equal(t, entitlementdomain.StatusExpired, restored.Status)
	})

	t.Run("restoring a non-suspended entitlement is rejected", func(t *testing.T) {
		_, err := svc.Restore(ctx, entitlementID)
		assert.ErrorIs(t, err, entitlementdomain.ErrNotSuspended)
	})

	t.Run("suspending an unknown id is not found", func(t *testing.T) {
		_, err := svc.Suspend(ctx, node.Generate())
		assert.ErrorIs(t, err, entitlementdomain.ErrEntitlementNotFound)
	})
}

func TestGrantFree(t *testing.T) {
	db := setupTestDB(t, "entitlement_grant")
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, fc, &fakeGateway{})

	node, _ := snowflake.NewNode(7)
	shopID := node.Generate()

	t.Run("grants without payment", func(t *testing.T) {
		snapshot, err := svc.GrantFree(context.Background(), entitlementdomain.GrantFreeRequest{
			ShopID:         shopID,
			ServiceType:    entitlementdomain.ServiceTypeSellerPlan,
			DurationMonths: 3,
		})
		assert.NoError(t, err)
		assert.Equal(t, entitlementdomain.StatusActive, snapshot.Status)
		assert.Equal(t, entitlementdomain.PaymentMethodAdminGranted, snapshot.Entitlement.LastPaymentMethod)
		assert.Equal(t, int64(0), snapshot.Entitlement.LastPaymentAmount)
		assert.Equal(t, fc.Now().AddDate(0, 3, 0), snapshot.Entitlement.EndAt.UTC())

		var count int64
		db.Raw(`SELECT COUNT(*) FROM service_payments WHERE shop_id = ?`, shopID).Scan(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("granting over an active entitlement is rejected", func(t *testing.T) {
		_, err := svc.GrantFree(context.Background(), entitlementdomain.GrantFreeRequest{
			ShopID:         shopID,
			ServiceType:    entitlementdomain.ServiceTypeSellerPlan,
			DurationMonths: 1,
		})
		assert.ErrorIs(t, err, entitlementdomain.ErrAlreadyActive)
	})

	t.Run("zero duration is rejected", func(t *testing.T) {
		_, err := svc.GrantFree(context.Background(), entitlementdomain.GrantFreeRequest{
			ShopID:         node.Generate(),
			ServiceType:    entitlementdomain.ServiceTypeSellerPlan,
			DurationMonths: 0,
		})
		assert.ErrorIs(t, err, entitlementdomain.ErrInvalidDuration)
	})
}

func TestGetProjection(t *testing.T) {
	db := setupTestDB(t, "entitlement_projection")
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	gateway := &fakeGateway{
		orderID: "ORDER-P1",
		result: paymentdomain.CaptureResult{
			Amount:        150_000,
			Currency:      "USD",
			PaymentMethod: "paypal",
			CapturedAt:    fc.Now(),
		},
	}
	svc := newTestService(t, db, fc, gateway)

	node, _ := snowflake.NewNode(8)
	shopID := node.Generate()
	ctx := shopCtx(shopID)

	t.Run("no record reads as none", func(t *testing.T) {
		snapshot, err := svc.Get(ctx, entitlementdomain.GetRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
		})
		assert.NoError(t, err)
		assert.Equal(t, entitlementdomain.StatusNone, snapshot.Status)
		assert.Nil(t, snapshot.Entitlement)
		assert.False(t, snapshot.CanRenew)
	})

	_, err := svc.CreatePurchase(ctx, entitlementdomain.CreatePurchaseRequest{
		ServiceType: entitlementdomain.ServiceTypeStoreManager,
	})
	assert.NoError(t, err)
	_, err = svc.Activate(ctx, entitlementdomain.ActivateRequest{
		ServiceType: entitlementdomain.ServiceTypeStoreManager,
		OrderID:     "ORDER-P1",
	})
	assert.NoError(t, err)

	t.Run("active record includes payment history", func(t *testing.T) {
		snapshot, err := svc.Get(ctx, entitlementdomain.GetRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
		})
		assert.NoError(t, err)
		assert.Equal(t, entitlementdomain.StatusActive, snapshot.Status)
		assert.Len(t, snapshot.Payments, 1)
		assert.False(t, snapshot.CanRenew)
	})

	t.Run("stored active past end reads as expired without writes", func(t *testing.T) {
		fc.Advance(45 * 24 * time.Hour)

		snapshot, err := svc.Get(ctx, entitlementdomain.GetRequest{
			ServiceType: entitlementdomain.ServiceTypeStoreManager,
		})
		assert.NoError(t, err)
		assert.Equal(t, entitlementdomain.StatusExpired, snapshot.Status)
		assert.True(t, snapshot.IsExpired)
		assert.Equal(t, 0, snapshot.DaysRemaining)
		assert.True(t, snapshot.CanRenew)

		// The stored row still says ACTIVE.
		var stored string
		db.Raw(`SELECT status FROM service_entitlements WHERE shop_id = ?`, shopID).Scan(&stored)
		assert.Equal(t, string(entitlementdomain.StatusActive), stored)
	})
}
