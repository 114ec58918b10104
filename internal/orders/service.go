package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pfstore/storefront-backend/internal/cart"
	"github.com/pfstore/storefront-backend/internal/catalog"
	"github.com/pfstore/storefront-backend/internal/coupons"
	"github.com/pfstore/storefront-backend/internal/ledger"
	"github.com/pfstore/storefront-backend/internal/notifications"
	"github.com/pfstore/storefront-backend/internal/shipping"
	"github.com/pfstore/storefront-backend/pkg/config"
	"github.com/pfstore/storefront-backend/pkg/db"
	"github.com/pfstore/storefront-backend/pkg/db/models"
	"github.com/pfstore/storefront-backend/pkg/enums"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
	"github.com/pfstore/storefront-backend/pkg/logger"
	"github.com/pfstore/storefront-backend/pkg/metrics"
	"github.com/pfstore/storefront-backend/pkg/ordernum"
	"github.com/pfstore/storefront-backend/pkg/pagination"
)

const orderNumberAttempts = 3

// ledgerRef is the reference_type written on order-driven ledger rows.
const ledgerRefOrder = "order"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the order lifecycle: creation, cancellation, returns and
// admin transitions. All writes that touch money, stock or balances run in a
// single transaction per operation.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	RequestReturn(ctx context.Context, input ReturnInput) (*models.ReturnRequest, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	GetAny(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params, status *enums.OrderStatus) (*Page, error)
	ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*Page, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	catalog  catalog.Repository
	cart     cart.Repository
	coupons  coupons.Service
	ledger   ledger.Service
	shipping shipping.Service
	notifier notifications.Publisher
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	shop     config.ShopConfig
	now      func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	catalogRepo catalog.Repository,
	cartRepo cart.Repository,
	couponSvc coupons.Service,
	ledgerSvc ledger.Service,
	shippingSvc shipping.Service,
	notifier notifications.Publisher,
	orderMetrics *metrics.OrderMetrics,
	logg *logger.Logger,
	shop config.ShopConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if shippingSvc == nil {
		return nil, fmt.Errorf("shipping service required")
	}
	if notifier == nil {
		notifier = notifications.NopPublisher{}
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		catalog:  catalogRepo,
		cart:     cartRepo,
		coupons:  couponSvc,
		ledger:   ledgerSvc,
		shipping: shippingSvc,
		notifier: notifier,
		metrics:  orderMetrics,
		logg:     logg,
		shop:     shop,
		now:      time.Now,
	}, nil
}

// pricedLine is a cart line locked to the live effective price at checkout.
type pricedLine struct {
	product   models.Product
	variantID *uuid.UUID
	unitPrice decimal.Decimal
	quantity  int
	lineTotal decimal.Decimal
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.UsePoints < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points amount cannot be negative")
	}
	if input.UseCredits.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credits amount cannot be negative")
	}

	now := s.now().UTC()

	items, err := s.cart.ListItems(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	lines, subtotal, err := priceLines(items)
	if err != nil {
		return nil, err
	}

	// Coupon failures are lenient at checkout: an unusable coupon drops the
	// discount instead of blocking the order.
	discount := decimal.Zero
	var evaluation *coupons.Evaluation
	var couponCode *string
	if input.CouponCode != nil && *input.CouponCode != "" {
		evaluation, err = s.coupons.Evaluate(ctx, coupons.EvaluateInput{
			Code:     *input.CouponCode,
			UserID:   input.UserID,
			Subtotal: subtotal,
			Now:      now,
		})
		switch {
		case err == nil:
			discount = evaluation.Discount
			couponCode = &evaluation.Coupon.Code
		case pkgerrors.IsCode(err, pkgerrors.CodeCouponRejected):
			s.logg.Warn(s.logg.WithField(ctx, "coupon_code", *input.CouponCode), "coupon rejected at checkout, proceeding without discount")
			evaluation = nil
		default:
			return nil, err
		}
	}

	method, err := s.shipping.Resolve(ctx, input.ShippingMethodCode)
	if err != nil {
		return nil, err
	}
	// Free shipping is earned by the raw merchandise subtotal, before any
	// coupon discount.
	shippingFee := shipping.QuoteFee(method, subtotal)
	discounted := subtotal.Sub(discount)

	pointsValue := decimal.NewFromInt(int64(input.UsePoints))
	total := discounted.
		Sub(pointsValue).
		Sub(input.UseCredits).
		Add(shippingFee).
		Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		for _, line := range lines {
			ok, derr := catalogRepo.DecrementStock(ctx, line.product.ID, line.quantity)
			if derr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, derr, "decrement stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
					WithDetails(map[string]any{"product_id": line.product.ID, "requested": line.quantity})
			}
		}

		order, cerr := s.createWithNumber(ctx, repo, &models.Order{
			UserID:          input.UserID,
			Status:          enums.OrderStatusPending,
			Subtotal:        subtotal,
			Discount:        discount,
			ShippingFee:     shippingFee,
			Total:           total,
			PointsUsed:      input.UsePoints,
			CreditsUsed:     input.UseCredits,
			CouponCode:      couponCode,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   enums.PaymentStatusPending,
			ShippingMethod:  &method.Code,
			ShippingAddress: &input.ShippingAddress,
			CustomerNote:    input.CustomerNote,
		}, now)
		if cerr != nil {
			return cerr
		}

		orderItems := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			productID := line.product.ID
			orderItems = append(orderItems, models.OrderItem{
				OrderID:      order.ID,
				ProductID:    &productID,
				VariantID:    line.variantID,
				ProductName:  line.product.Name,
				ProductSKU:   line.product.SKU,
				ProductImage: line.product.PrimaryImage,
				UnitPrice:    line.unitPrice,
				Quantity:     line.quantity,
				TotalPrice:   line.lineTotal,
			})
		}
		if cerr := repo.CreateOrderItems(ctx, orderItems); cerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, cerr, "create order items")
		}

		if evaluation != nil {
			if cerr := s.coupons.Redeem(ctx, tx, coupons.RedeemInput{
				Coupon:   evaluation.Coupon,
				UserID:   input.UserID,
				OrderID:  order.ID,
				Discount: discount,
			}); cerr != nil {
				return cerr
			}
		}

		if input.UsePoints > 0 {
			if cerr := s.ledger.DebitPoints(ctx, tx, input.UserID, input.UsePoints, ledger.EntryRef{
				Type:        ledgerRefOrder,
				ID:          order.ID,
				Description: "redeemed at checkout " + order.OrderNumber,
			}); cerr != nil {
				return cerr
			}
		}
		if input.UseCredits.IsPositive() {
			if cerr := s.ledger.DebitCredits(ctx, tx, input.UserID, input.UseCredits); cerr != nil {
				return cerr
			}
		}

		if cerr := repo.CreateStatusLog(ctx, &models.OrderStatusLog{
			OrderID:  order.ID,
			ToStatus: enums.OrderStatusPending,
		}); cerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, cerr, "create status log")
		}

		if cerr := s.cart.WithTx(tx).DeleteByUser(ctx, input.UserID); cerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, cerr, "clear cart")
		}

		order.Items = orderItems
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCreated(created.Total)
	s.notify(ctx, notifications.Event{
		Type:        notifications.EventOrderCreated,
		UserID:      created.UserID,
		OrderID:     created.ID,
		OrderNumber: created.OrderNumber,
		Data:        map[string]any{"total": created.Total},
	})

	ctx = s.logg.WithOrderNumber(ctx, created.OrderNumber)
	s.logg.Info(ctx, "order created")
	return created, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, lerr := repo.FindOrderForUser(ctx, input.OrderID, input.UserID)
		if lerr != nil {
			if lerr == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, lerr, "load order")
		}

		// Members may only cancel before fulfilment starts; admins can also
		// cancel processing orders through UpdateStatus.
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending or confirmed orders can be cancelled")
		}

		if cerr := s.cancelInTx(ctx, tx, order, input.UserID, input.Note); cerr != nil {
			return cerr
		}
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCancelled()
	s.notify(ctx, notifications.Event{
		Type:        notifications.EventOrderCancelled,
		UserID:      cancelled.UserID,
		OrderID:     cancelled.ID,
		OrderNumber: cancelled.OrderNumber,
	})

	ctx = s.logg.WithOrderNumber(ctx, cancelled.OrderNumber)
	s.logg.Info(ctx, "order cancelled")
	return cancelled, nil
}

// cancelInTx applies cancellation compensation: stock back, points back with
// an adjust ledger row, credits back. Products deleted since purchase are
// skipped when restoring stock.
func (s *service) cancelInTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor uuid.UUID, note *string) error {
	if !CanTransition(order.Status, enums.OrderStatusCancelled) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
	}

	repo := s.repo.WithTx(tx)
	catalogRepo := s.catalog.WithTx(tx)

	for _, item := range order.Items {
		if item.ProductID == nil {
			continue
		}
		ok, rerr := catalogRepo.RestoreStock(ctx, *item.ProductID, item.Quantity)
		if rerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, rerr, "restore stock")
		}
		if !ok {
			s.logg.Warn(s.logg.WithField(ctx, "product_id", item.ProductID.String()), "product missing during stock restore, skipping")
		}
	}

	if order.PointsUsed > 0 {
		if lerr := s.ledger.RefundPoints(ctx, tx, order.UserID, order.PointsUsed, ledger.EntryRef{
			Type:        ledgerRefOrder,
			ID:          order.ID,
			Description: "refund for cancelled order " + order.OrderNumber,
		}); lerr != nil {
			return lerr
		}
	}
	if order.CreditsUsed.IsPositive() {
		if lerr := s.ledger.RefundCredits(ctx, tx, order.UserID, order.CreditsUsed); lerr != nil {
			return lerr
		}
	}

	if uerr := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusCancelled}); uerr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, uerr, "update order status")
	}

	changedBy := actor
	if lerr := repo.CreateStatusLog(ctx, &models.OrderStatusLog{
		OrderID:    order.ID,
		FromStatus: order.Status.String(),
		ToStatus:   enums.OrderStatusCancelled,
		ChangedBy:  &changedBy,
		Note:       note,
	}); lerr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, lerr, "create status log")
	}

	order.Status = enums.OrderStatusCancelled
	return nil
}

func (s *service) RequestReturn(ctx context.Context, input ReturnInput) (*models.ReturnRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}

	var request *models.ReturnRequest
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, lerr := repo.FindOrderForUser(ctx, input.OrderID, input.UserID)
		if lerr != nil {
			if lerr == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, lerr, "load order")
		}
		order = loaded

		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be returned")
		}

		if _, ferr := repo.FindActiveReturn(ctx, order.ID); ferr == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "an active return request already exists")
		} else if ferr != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "check active returns")
		}

		created, cerr := repo.CreateReturnRequest(ctx, &models.ReturnRequest{
			OrderID:      order.ID,
			UserID:       input.UserID,
			Reason:       input.Reason,
			Description:  input.Description,
			Images:       input.Images,
			Status:       enums.ReturnStatusPending,
			RefundAmount: order.Total,
		})
		if cerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, cerr, "create return request")
		}

		if uerr := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusReturnRequested}); uerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, uerr, "update order status")
		}
		changedBy := input.UserID
		if lerr := repo.CreateStatusLog(ctx, &models.OrderStatusLog{
			OrderID:    order.ID,
			FromStatus: order.Status.String(),
			ToStatus:   enums.OrderStatusReturnRequested,
			ChangedBy:  &changedBy,
			Note:       &input.Reason,
		}); lerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, lerr, "create status log")
		}

		request = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncReturnRequested()
	s.notify(ctx, notifications.Event{
		Type:        notifications.EventReturnRequested,
		UserID:      order.UserID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Data:        map[string]any{"refund_amount": request.RefundAmount},
	})
	return request, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.ToStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, lerr := repo.FindOrder(ctx, input.OrderID)
		if lerr != nil {
			if lerr == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, lerr, "load order")
		}

		if !CanTransition(order.Status, input.ToStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
				WithDetails(map[string]string{"from": order.Status.String(), "to": input.ToStatus.String()})
		}

		// Admin cancellations carry the same compensation as member ones.
		if input.ToStatus == enums.OrderStatusCancelled {
			if cerr := s.cancelInTx(ctx, tx, order, input.AdminID, input.Note); cerr != nil {
				return cerr
			}
			updated = order
			return nil
		}

		now := s.now().UTC()
		updates := map[string]any{"status": input.ToStatus}
		switch input.ToStatus {
		case enums.OrderStatusShipped:
			updates["shipped_at"] = now
			if input.TrackingNumber != nil {
				updates["tracking_number"] = *input.TrackingNumber
			}
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		}

		if uerr := repo.UpdateOrder(ctx, order.ID, updates); uerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, uerr, "update order status")
		}

		changedBy := input.AdminID
		if lerr := repo.CreateStatusLog(ctx, &models.OrderStatusLog{
			OrderID:    order.ID,
			FromStatus: order.Status.String(),
			ToStatus:   input.ToStatus,
			ChangedBy:  &changedBy,
			Note:       input.Note,
		}); lerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, lerr, "create status log")
		}

		order.Status = input.ToStatus
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notifications.Event{
		Type:        notifications.EventOrderStatus,
		UserID:      updated.UserID,
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		Data:        map[string]any{"status": updated.Status},
	})
	return updated, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderForUser(ctx, orderID, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetAny(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params, status *enums.OrderStatus) (*Page, error) {
	page, err := s.repo.List(ctx, params, ListFilters{UserID: &userID, Status: status})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return page, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*Page, error) {
	page, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return page, nil
}

// createWithNumber retries on order-number collisions; the random suffix
// space makes more than one retry vanishingly rare.
func (s *service) createWithNumber(ctx context.Context, repo Repository, order *models.Order, now time.Time) (*models.Order, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := ordernum.Generate(s.shop.OrderNumberPrefix, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.ID = uuid.Nil
		order.OrderNumber = number

		created, err := repo.CreateOrder(ctx, order)
		if err == nil {
			return created, nil
		}
		if !db.IsUniqueViolation(err, "order_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order number")
}

func (s *service) notify(ctx context.Context, event notifications.Event) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "event_type", string(event.Type)), "notification publish failed")
	}
}

// priceLines locks every cart line to its live effective price. A product
// that has been deactivated or deleted since it was carted fails the whole
// checkout rather than silently producing a partial order.
func priceLines(items []models.CartItem) ([]pricedLine, decimal.Decimal, error) {
	lines := make([]pricedLine, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		if item.Product == nil || !item.Product.IsActive {
			details := map[string]any{"product_id": item.ProductID}
			if item.Product != nil {
				details["product_name"] = item.Product.Name
			}
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product no longer available").
				WithDetails(details)
		}
		unit := item.Product.EffectivePrice()
		lineTotal := unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		lines = append(lines, pricedLine{
			product:   *item.Product,
			variantID: item.VariantID,
			unitPrice: unit,
			quantity:  item.Quantity,
			lineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return lines, subtotal.Round(2), nil
}
