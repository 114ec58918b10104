package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/internal/notifications"
	"github.com/pfstore/storefront-backend/internal/orders"
	"github.com/pfstore/storefront-backend/pkg/config"
	"github.com/pfstore/storefront-backend/pkg/db/models"
	"github.com/pfstore/storefront-backend/pkg/enums"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
	"github.com/pfstore/storefront-backend/pkg/logger"
	"github.com/pfstore/storefront-backend/pkg/metrics"
	"github.com/pfstore/storefront-backend/pkg/redis"
	"github.com/pfstore/storefront-backend/pkg/types"
)

const gatewaySuccessCode = "1"

const callbackScope = "payment_callback"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service creates settlement attempts and absorbs gateway callbacks. The
// callback path always answers in the gateway's ack dialect; internal
// failures surface as errors so the gateway retries.
type Service interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error)
	HandleCallback(ctx context.Context, input CallbackInput) (string, error)
	GetStatus(ctx context.Context, userID, orderID uuid.UUID) (*StatusView, error)
}

type service struct {
	repo     Repository
	orders   orders.Repository
	tx       txRunner
	dedupe   redis.IdempotencyStore
	gateway  *Gateway
	notifier notifications.Publisher
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	gwCfg    config.GatewayConfig
	shop     config.ShopConfig
	now      func() time.Time
}

// NewService builds a payments service with the required dependencies.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	dedupe redis.IdempotencyStore,
	gateway *Gateway,
	notifier notifications.Publisher,
	orderMetrics *metrics.OrderMetrics,
	logg *logger.Logger,
	gwCfg config.GatewayConfig,
	shop config.ShopConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if notifier == nil {
		notifier = notifications.NopPublisher{}
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		orders:   ordersRepo,
		tx:       tx,
		dedupe:   dedupe,
		gateway:  gateway,
		notifier: notifier,
		metrics:  orderMetrics,
		logg:     logg,
		gwCfg:    gwCfg,
		shop:     shop,
		now:      time.Now,
	}, nil
}

func (s *service) CreatePayment(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.orders.FindOrderForUser(ctx, input.OrderID, input.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed")
	}

	payment, err := s.repo.CreatePayment(ctx, &models.Payment{
		OrderID:        order.ID,
		Method:         order.PaymentMethod,
		Amount:         order.Total,
		Currency:       s.shop.Currency,
		Status:         enums.PaymentAttemptStatusPending,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment attempt")
	}

	form := s.gateway.BuildCheckout(order.OrderNumber, order.Total, "Storefront order "+order.OrderNumber, s.now())
	return &CreatePaymentResult{PaymentID: payment.ID, Checkout: form}, nil
}

// HandleCallback settles (or fails) the latest payment attempt for the order
// named in the callback. Unknown orders get a soft ack so the gateway stops
// retrying; duplicate deliveries are absorbed by the dedupe guard and the
// already-paid check.
func (s *service) HandleCallback(ctx context.Context, input CallbackInput) (string, error) {
	if input.MerchantTradeNo == "" {
		return AckOrderNotFound, nil
	}
	ctx = s.logg.WithOrderNumber(ctx, input.MerchantTradeNo)

	if s.gwCfg.HashKey != "" && !s.gateway.VerifyCallback(input.Raw) {
		s.metrics.IncCallback("bad_mac")
		s.logg.Warn(ctx, "callback signature mismatch")
		return AckBadMac, nil
	}

	order, err := s.orders.FindOrderByNumber(ctx, input.MerchantTradeNo)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.metrics.IncCallback("unknown_order")
			s.logg.Warn(ctx, "callback for unknown order")
			return AckOrderNotFound, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by number")
	}

	dedupeKey := s.dedupe.IdempotencyKey(callbackScope, input.MerchantTradeNo+":"+input.TradeNo)
	first, err := s.dedupe.SetNX(ctx, dedupeKey, input.RtnCode, s.gwCfg.CallbackDedupe)
	if err != nil {
		// Redis being down must not drop settlements; the already-paid
		// check below still keeps the handler idempotent.
		s.logg.Warn(ctx, "callback dedupe store unavailable")
	} else if !first {
		s.metrics.IncCallback("duplicate")
		return AckOK, nil
	}

	if order.PaymentStatus == enums.PaymentStatusPaid {
		s.metrics.IncCallback("already_paid")
		return AckOK, nil
	}

	success := input.RtnCode == gatewaySuccessCode
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		payment, perr := repo.FindLatestByOrder(ctx, order.ID)
		if perr != nil && perr != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, perr, "load payment attempt")
		}
		if perr == gorm.ErrRecordNotFound {
			// COD orders and legacy rows have no attempt; settle directly
			// on the order.
			payment = nil
		}

		now := s.now().UTC()
		raw := make(types.JSONMap, len(input.Raw))
		for k, v := range input.Raw {
			raw[k] = v
		}

		if payment != nil {
			updates := map[string]any{"gateway_response": raw}
			if success {
				updates["status"] = enums.PaymentAttemptStatusCompleted
				updates["transaction_id"] = input.TradeNo
				updates["paid_at"] = now
			} else {
				updates["status"] = enums.PaymentAttemptStatusFailed
			}
			if uerr := repo.UpdatePayment(ctx, payment.ID, updates); uerr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, uerr, "update payment attempt")
			}
		}

		if !success {
			if uerr := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{"payment_status": enums.PaymentStatusFailed}); uerr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, uerr, "mark order payment failed")
			}
			return nil
		}

		orderUpdates := map[string]any{"payment_status": enums.PaymentStatusPaid}
		// The settlement only advances pending orders; anything else keeps
		// its lifecycle status and just records the paid flag.
		if order.Status == enums.OrderStatusPending {
			orderUpdates["status"] = enums.OrderStatusConfirmed
		}
		if uerr := ordersRepo.UpdateOrder(ctx, order.ID, orderUpdates); uerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, uerr, "mark order paid")
		}

		if order.Status == enums.OrderStatusPending {
			note := "payment confirmed, gateway txn " + input.TradeNo
			if lerr := ordersRepo.CreateStatusLog(ctx, &models.OrderStatusLog{
				OrderID:    order.ID,
				FromStatus: enums.OrderStatusPending.String(),
				ToStatus:   enums.OrderStatusConfirmed,
				Note:       &note,
			}); lerr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, lerr, "create status log")
			}
		}
		return nil
	})
	if err != nil {
		// Release the dedupe slot so the gateway's retry is not swallowed.
		if derr := s.dedupe.Del(ctx, dedupeKey); derr != nil {
			s.logg.Warn(ctx, "failed to release callback dedupe key")
		}
		return "", err
	}

	if success {
		s.metrics.IncCallback("paid")
		s.notify(ctx, notifications.Event{
			Type:        notifications.EventOrderPaid,
			UserID:      order.UserID,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Data:        map[string]any{"transaction_id": input.TradeNo},
		})
		s.logg.Info(ctx, "payment settled")
	} else {
		s.metrics.IncCallback("failed")
		s.logg.Warn(ctx, "payment failed: "+input.RtnMsg)
	}
	return AckOK, nil
}

func (s *service) GetStatus(ctx context.Context, userID, orderID uuid.UUID) (*StatusView, error) {
	order, err := s.orders.FindOrderForUser(ctx, orderID, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	view := &StatusView{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		PaymentStatus: order.PaymentStatus,
	}

	payment, err := s.repo.FindLatestByOrder(ctx, order.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return view, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempt")
	}
	view.Attempt = &AttemptView{
		PaymentID:     payment.ID,
		Status:        payment.Status,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		TransactionID: payment.TransactionID,
		PaidAt:        payment.PaidAt,
	}
	return view, nil
}

func (s *service) notify(ctx context.Context, event notifications.Event) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logg.Warn(ctx, "notification publish failed")
	}
}
