package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/internal/orders"
	"github.com/pfstore/storefront-backend/pkg/config"
	"github.com/pfstore/storefront-backend/pkg/db/models"
	"github.com/pfstore/storefront-backend/pkg/enums"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
	"github.com/pfstore/storefront-backend/pkg/logger"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// fakeDedupe is an in-memory stand-in for the Redis idempotency store.
type fakeDedupe struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newFakeDedupe() *fakeDedupe {
	return &fakeDedupe{keys: map[string]struct{}{}}
}

func (f *fakeDedupe) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = struct{}{}
	return true, nil
}

func (f *fakeDedupe) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeDedupe) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

type testEnv struct {
	db  *gorm.DB
	svc Service
}

func newTestEnv(t *testing.T, gwCfg config.GatewayConfig) *testEnv {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.OrderStatusLog{}, &models.Payment{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	gateway, err := NewGateway(gwCfg)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	svc, err := NewService(
		NewRepository(db),
		orders.NewRepository(db),
		gormTxRunner{db: db},
		newFakeDedupe(),
		gateway,
		nil,
		nil,
		logger.New(logger.Options{ServiceName: "test"}),
		gwCfg,
		config.ShopConfig{Currency: "TWD", OrderNumberPrefix: "PFS"},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testEnv{db: db, svc: svc}
}

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		CheckoutURL:    "https://gateway.example.com/checkout",
		MerchantID:     "2000132",
		ReturnURL:      "https://shop.example.com/api/v1/payments/callback",
		CallbackDedupe: time.Hour,
	}
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, paymentStatus enums.PaymentStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		OrderNumber:   "PFS20260830" + uuid.NewString()[:6],
		Status:        status,
		Subtotal:      decimal.NewFromInt(500),
		Total:         decimal.NewFromInt(580),
		PaymentMethod: enums.PaymentMethodCreditCard,
		PaymentStatus: paymentStatus,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func seedAttempt(t *testing.T, db *gorm.DB, orderID uuid.UUID) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		ID:             uuid.New(),
		OrderID:        orderID,
		Method:         enums.PaymentMethodCreditCard,
		Amount:         decimal.NewFromInt(580),
		Currency:       "TWD",
		Status:         enums.PaymentAttemptStatusPending,
		IdempotencyKey: uuid.NewString(),
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return payment
}

func TestCreatePayment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testGatewayConfig())
	ctx := context.Background()
	order := seedOrder(t, env.db, enums.OrderStatusPending, enums.PaymentStatusPending)

	result, err := env.svc.CreatePayment(ctx, CreatePaymentInput{UserID: order.UserID, OrderID: order.ID})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if result.PaymentID == uuid.Nil {
		t.Fatalf("expected payment id")
	}
	if result.Checkout.ActionURL != "https://gateway.example.com/checkout" {
		t.Fatalf("unexpected action url %q", result.Checkout.ActionURL)
	}
	if result.Checkout.Fields["MerchantTradeNo"] != order.OrderNumber {
		t.Fatalf("expected order number in checkout form")
	}
	if result.Checkout.Fields["TotalAmount"] != "580" {
		t.Fatalf("expected integer amount, got %q", result.Checkout.Fields["TotalAmount"])
	}
	if result.Checkout.Fields["CheckMacValue"] == "" {
		t.Fatalf("expected signed form")
	}

	var attempt models.Payment
	if err := env.db.First(&attempt, "id = ?", result.PaymentID).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if attempt.IdempotencyKey == "" {
		t.Fatalf("expected idempotency key on attempt")
	}

	// A retry after failure gets its own attempt row with a fresh key.
	if err := env.db.Model(&models.Payment{}).Where("id = ?", attempt.ID).Update("status", enums.PaymentAttemptStatusFailed).Error; err != nil {
		t.Fatalf("fail attempt: %v", err)
	}
	retry, err := env.svc.CreatePayment(ctx, CreatePaymentInput{UserID: order.UserID, OrderID: order.ID})
	if err != nil {
		t.Fatalf("retry payment: %v", err)
	}
	var second models.Payment
	if err := env.db.First(&second, "id = ?", retry.PaymentID).Error; err != nil {
		t.Fatalf("load retry attempt: %v", err)
	}
	if second.IdempotencyKey == "" || second.IdempotencyKey == attempt.IdempotencyKey {
		t.Fatalf("expected a unique idempotency key per attempt")
	}
}

func TestCreatePaymentStateConflicts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testGatewayConfig())
	ctx := context.Background()

	paid := seedOrder(t, env.db, enums.OrderStatusConfirmed, enums.PaymentStatusPaid)
	_, err := env.svc.CreatePayment(ctx, CreatePaymentInput{UserID: paid.UserID, OrderID: paid.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for paid order, got %v", err)
	}

	cancelled := seedOrder(t, env.db, enums.OrderStatusCancelled, enums.PaymentStatusPending)
	_, err = env.svc.CreatePayment(ctx, CreatePaymentInput{UserID: cancelled.UserID, OrderID: cancelled.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for closed order, got %v", err)
	}

	_, err = env.svc.CreatePayment(ctx, CreatePaymentInput{UserID: uuid.New(), OrderID: paid.ID})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign order, got %v", err)
	}
}

func TestHandleCallbackSettlesOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testGatewayConfig())
	ctx := context.Background()
	order := seedOrder(t, env.db, enums.OrderStatusPending, enums.PaymentStatusPending)
	attempt := seedAttempt(t, env.db, order.ID)

	ack, err := env.svc.HandleCallback(ctx, CallbackInput{
		MerchantTradeNo: order.OrderNumber,
		RtnCode:         "1",
		RtnMsg:          "Succeeded",
		TradeNo:         "EC123456",
		Raw:             map[string]string{"MerchantTradeNo": order.OrderNumber, "RtnCode": "1"},
	})
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if ack != AckOK {
		t.Fatalf("expected %q, got %q", AckOK, ack)
	}

	var reloadedAttempt models.Payment
	if err := env.db.First(&reloadedAttempt, "id = ?", attempt.ID).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if reloadedAttempt.Status != enums.PaymentAttemptStatusCompleted {
		t.Fatalf("unexpected attempt status %s", reloadedAttempt.Status)
	}
	if reloadedAttempt.TransactionID == nil || *reloadedAttempt.TransactionID != "EC123456" {
		t.Fatalf("expected transaction id persisted")
	}
	if reloadedAttempt.PaidAt == nil {
		t.Fatalf("expected paid_at set")
	}

	var reloadedOrder models.Order
	if err := env.db.First(&reloadedOrder, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if reloadedOrder.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("unexpected payment status %s", reloadedOrder.PaymentStatus)
	}
	if reloadedOrder.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected order confirmed, got %s", reloadedOrder.Status)
	}

	var log models.OrderStatusLog
	if err := env.db.First(&log, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load status log: %v", err)
	}
	if log.ToStatus != enums.OrderStatusConfirmed || log.Note == nil {
		t.Fatalf("unexpected status log: %+v", log)
	}
}

func TestHandleCallbackFailureMarksOrderFailed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testGatewayConfig())
	ctx := context.Background()
	order := seedOrder(t, env.db, enums.OrderStatusPending, enums.PaymentStatusPending)
	attempt := seedAttempt(t, env.db, order.ID)

	ack, err := env.svc.HandleCallback(ctx, CallbackInput{
		MerchantTradeNo: order.OrderNumber,
		RtnCode:         "10200095",
		RtnMsg:          "Declined",
		TradeNo:         "EC999",
		Raw:             map[string]string{"RtnCode": "10200095"},
	})
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if ack != AckOK {
		t.Fatalf("expected %q, got %q", AckOK, ack)
	}

	var reloadedAttempt models.Payment
	if err := env.db.First(&reloadedAttempt, "id = ?", attempt.ID).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if reloadedAttempt.Status != enums.PaymentAttemptStatusFailed {
		t.Fatalf("unexpected attempt status %s", reloadedAttempt.Status)
	}

	var reloadedOrder models.Order
	if err := env.db.First(&reloadedOrder, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if reloadedOrder.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("unexpected payment status %s", reloadedOrder.PaymentStatus)
	}
	if reloadedOrder.Status != enums.OrderStatusPending {
		t.Fatalf("failed payment must not advance the order, got %s", reloadedOrder.Status)
	}
}

func TestHandleCallbackUnknownOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testGatewayConfig())

	ack, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		MerchantTradeNo: "PFS20260830NOPE01",
		RtnCode:         "1",
	})
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if ack != AckOrderNotFound {
		t.Fatalf("expected %q, got %q", AckOrderNotFound, ack)
	}

	ack, err = env.svc.HandleCallback(context.Background(), CallbackInput{})
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if ack != AckOrderNotFound {
		t.Fatalf("expected %q for empty trade no, got %q", AckOrderNotFound, ack)
	}
}

func TestHandleCallbackDuplicateDelivery(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testGatewayConfig())
	ctx := context.Background()
	order := seedOrder(t, env.db, enums.OrderStatusPending, enums.PaymentStatusPending)
	seedAttempt(t, env.db, order.ID)

	input := CallbackInput{
		MerchantTradeNo: order.OrderNumber,
		RtnCode:         "1",
		TradeNo:         "EC777",
		Raw:             map[string]string{"RtnCode": "1"},
	}
	if _, err := env.svc.HandleCallback(ctx, input); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	ack, err := env.svc.HandleCallback(ctx, input)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if ack != AckOK {
		t.Fatalf("duplicate must soft-ack, got %q", ack)
	}

	var logCount int64
	if err := env.db.Model(&models.OrderStatusLog{}).Where("order_id = ?", order.ID).Count(&logCount).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if logCount != 1 {
		t.Fatalf("duplicate must not settle twice, got %d logs", logCount)
	}
}

func TestHandleCallbackAlreadyPaid(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testGatewayConfig())
	order := seedOrder(t, env.db, enums.OrderStatusConfirmed, enums.PaymentStatusPaid)

	ack, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		MerchantTradeNo: order.OrderNumber,
		RtnCode:         "1",
		TradeNo:         "EC888",
	})
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if ack != AckOK {
		t.Fatalf("expected %q, got %q", AckOK, ack)
	}
}

func TestHandleCallbackWithoutAttemptSettlesOrderOnly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, testGatewayConfig())
	ctx := context.Background()
	order := seedOrder(t, env.db, enums.OrderStatusPending, enums.PaymentStatusPending)

	ack, err := env.svc.HandleCallback(ctx, CallbackInput{
		MerchantTradeNo: order.OrderNumber,
		RtnCode:         "1",
		TradeNo:         "EC555",
	})
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if ack != AckOK {
		t.Fatalf("expected %q, got %q", AckOK, ack)
	}

	var reloaded models.Order
	if err := env.db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if reloaded.PaymentStatus != enums.PaymentStatusPaid || reloaded.Status != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected order state %s/%s", reloaded.Status, reloaded.PaymentStatus)
	}
}

func TestHandleCallbackRejectsBadSignature(t *testing.T) {
	t.Parallel()

	cfg := testGatewayConfig()
	cfg.HashKey = "5294y06JbISpM5x9"
	cfg.HashIV = "v77hoKGq4kWxNNIS"
	env := newTestEnv(t, cfg)
	order := seedOrder(t, env.db, enums.OrderStatusPending, enums.PaymentStatusPending)

	ack, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		MerchantTradeNo: order.OrderNumber,
		RtnCode:         "1",
		TradeNo:         "EC111",
		Raw:             map[string]string{"RtnCode": "1", "CheckMacValue": "FORGED"},
	})
	if err != nil {
		t.Fatalf("handle callback: %v", err)
	}
	if ack != AckBadMac {
		t.Fatalf("expected %q, got %q", AckBadMac, ack)
	}

	var reloaded models.Order
	if err := env.db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if reloaded.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("forged callback must not settle, got %s", reloaded.PaymentStatus)
	}
}

func TestGatewayMacRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testGatewayConfig()
	cfg.HashKey = "5294y06JbISpM5x9"
	cfg.HashIV = "v77hoKGq4kWxNNIS"
	gateway, err := NewGateway(cfg)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	form := gateway.BuildCheckout("PFS20260830ABC123", decimal.NewFromInt(580), "Storefront order", time.Now())
	if !gateway.VerifyCallback(form.Fields) {
		t.Fatalf("self-signed form must verify")
	}

	tampered := make(map[string]string, len(form.Fields))
	for k, v := range form.Fields {
		tampered[k] = v
	}
	tampered["TotalAmount"] = "1"
	if gateway.VerifyCallback(tampered) {
		t.Fatalf("tampered form must not verify")
	}
	delete(tampered, "CheckMacValue")
	if gateway.VerifyCallback(tampered) {
		t.Fatalf("unsigned form must not verify")
	}
}
