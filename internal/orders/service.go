package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/internal/cart"
	"github.com/iwanyu/marketplace-backend/pkg/db"
	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/outbox"
	"github.com/iwanyu/marketplace-backend/pkg/outbox/payloads"
	"github.com/iwanyu/marketplace-backend/pkg/pagination"
	"github.com/iwanyu/marketplace-backend/pkg/security"
)

const (
	maxOrderNumberAttempts = 3
	defaultCurrency        = "RWF"
	expiryReason           = "payment not received before expiry"
	// A checkout opened within this window may still settle, so expiry waits.
	pendingPaymentGrace = 2 * time.Hour
)

var errOrderNumberTaken = errors.New("order number already in use")

// Service exposes checkout, customer order operations and admin fulfilment.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*CreatedOrderDTO, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	Tracking(ctx context.Context, userID, orderID uuid.UUID) (*TrackingDTO, error)
	List(ctx context.Context, userID uuid.UUID, filters ListFilters, params pagination.Params) (pagination.Result[OrderSummaryDTO], error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	AdminList(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Result[OrderSummaryDTO], error)
	UpdateStatus(ctx context.Context, actor outbox.ActorRef, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	ListVendorItems(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (pagination.Result[VendorItemDTO], error)
	Expire(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo     Repository
	Carts    *cart.Repository
	Tx       txRunner
	Outbox   outbox.Emitter
	Currency string
	// OrderNumber defaults to NewOrderNumber; tests override it to force collisions.
	OrderNumber func(now time.Time) (string, error)
	Clock       func() time.Time
}

type service struct {
	repo        Repository
	carts       *cart.Repository
	tx          txRunner
	outbox      outbox.Emitter
	currency    string
	orderNumber func(now time.Time) (string, error)
	now         func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	svc := &service{
		repo:        params.Repo,
		carts:       params.Carts,
		tx:          params.Tx,
		outbox:      params.Outbox,
		currency:    strings.ToUpper(strings.TrimSpace(params.Currency)),
		orderNumber: params.OrderNumber,
		now:         params.Clock,
	}
	if svc.currency == "" {
		svc.currency = defaultCurrency
	}
	if svc.orderNumber == nil {
		svc.orderNumber = NewOrderNumber
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	return svc, nil
}

// NewOrderNumber formats ORD-<epoch ms>-<9 random base36 chars>.
func NewOrderNumber(now time.Time) (string, error) {
	suffix, err := security.RandomBase36(9)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix), nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*CreatedOrderDTO, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is invalid")
	}
	ids, err := cartItemIDs(input.CartItemIDs)
	if err != nil {
		return nil, err
	}
	if err := validateAddress(input.ShippingAddress); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		number, err := s.orderNumber(s.now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		created, err := s.createOnce(ctx, userID, input, ids, number)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, errOrderNumberTaken) {
			return nil, err
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number, please retry")
}

func (s *service) createOnce(ctx context.Context, userID uuid.UUID, input CreateOrderInput, ids []uuid.UUID, number string) (*CreatedOrderDTO, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		carts := s.carts.WithTx(tx)

		lines, err := carts.FindByIDsForUser(ctx, ids, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
		}
		if len(lines) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeBadRequest, "one or more cart items were not found")
		}

		items := make([]models.OrderItem, 0, len(lines))
		var total int64
		for _, line := range lines {
			item, err := orderItemFromLine(line)
			if err != nil {
				return err
			}
			total += item.LineTotalCents()
			items = append(items, item)
		}

		address := addressModel(userID, input.ShippingAddress)
		if err := repo.CreateShippingAddress(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store shipping address")
		}

		order = &models.Order{
			OrderNumber:       number,
			UserID:            userID,
			Status:            enums.OrderStatusPending,
			TotalAmountCents:  total,
			Currency:          s.currency,
			PaymentMethod:     input.PaymentMethod,
			PaymentStatus:     enums.OrderPaymentPending,
			ShippingAddressID: address.ID,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, OrderNumberConstraint) || db.IsUniqueViolation(err, "orders.order_number") {
				return errOrderNumberTaken
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}

		for _, item := range items {
			ok, err := repo.DecrementStock(ctx, item.ProductID, item.SelectedVariantID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
			if !ok {
				return pkgerrors.Newf(pkgerrors.CodeBadRequest, "insufficient stock for %s", item.ProductName)
			}
		}

		// Another checkout may have consumed the same lines since they were read.
		deleted, err := carts.DeleteByIDs(ctx, ids, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear ordered cart items")
		}
		if deleted != int64(len(ids)) {
			return pkgerrors.New(pkgerrors.CodeBadRequest, "one or more cart items were not found")
		}

		order.Items = items
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.UserRoleCustomer},
			Data:          orderCreatedEvent(order),
		})
	})
	if err != nil {
		return nil, err
	}
	return &CreatedOrderDTO{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		TotalAmount:   summaryFromModel(order).TotalAmount,
		Currency:      order.Currency,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		CreatedAt:     order.CreatedAt,
	}, nil
}

func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.ownedDetail(ctx, repo, userID, orderID)
		if err != nil {
			return err
		}
		actor := &outbox.ActorRef{UserID: userID, Role: enums.UserRoleCustomer}
		return s.cancelTx(ctx, tx, repo, order, actor, enums.EventOrderCancelled, "")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, orderID)
}

// Expire abandons an unpaid order. It reports false when the order was no
// longer eligible, e.g. paid in the meantime or a checkout is still open.
func (s *service) Expire(ctx context.Context, orderID uuid.UUID) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindDetail(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if order.Status != enums.OrderStatusPending ||
			order.PaymentStatus == enums.OrderPaymentPaid ||
			order.PaymentMethod == enums.PaymentMethodCashOnDelivery {
			return nil
		}
		open, err := repo.HasPendingPaymentSince(ctx, order.ID, s.now().Add(-pendingPaymentGrace))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open payments")
		}
		if open {
			return nil
		}
		if err := s.cancelTx(ctx, tx, repo, order, nil, enums.EventOrderExpired, expiryReason); err != nil {
			if pkgerrors.CodeOf(err) == pkgerrors.CodeBadRequest {
				return nil
			}
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

func (s *service) cancelTx(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, actor *outbox.ActorRef, event enums.OutboxEventType, reason string) error {
	if !order.Status.IsCancellable() {
		return pkgerrors.Newf(pkgerrors.CodeBadRequest, "order cannot be cancelled in status %s", order.Status)
	}
	ok, err := repo.TransitionStatus(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed},
		map[string]any{"status": enums.OrderStatusCancelled})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "order status changed, please reload")
	}
	for _, item := range order.Items {
		if err := repo.RestoreStock(ctx, item.ProductID, item.SelectedVariantID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore stock")
		}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     event,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			CancelledAt: s.now(),
			Reason:      reason,
		},
	})
}

func (s *service) Tracking(ctx context.Context, userID, orderID uuid.UUID) (*TrackingDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return trackingFromModel(order), nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, filters ListFilters, params pagination.Params) (pagination.Result[OrderSummaryDTO], error) {
	filters.UserID = &userID
	return s.list(ctx, filters, params)
}

func (s *service) AdminList(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Result[OrderSummaryDTO], error) {
	return s.list(ctx, filters, params)
}

func (s *service) list(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Result[OrderSummaryDTO], error) {
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return pagination.Result[OrderSummaryDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return pagination.NewResult(summariesFromModels(rows), params, total), nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.ownedDetail(ctx, s.repo, userID, orderID)
	if err != nil {
		return nil, err
	}
	return detailFromModel(order), nil
}

func (s *service) UpdateStatus(ctx context.Context, actor outbox.ActorRef, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status is invalid")
	}
	tracking := trimmed(input.TrackingNumber)
	if tracking != nil && input.Status != enums.OrderStatusShipped {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking_number is only accepted when shipping")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindDetail(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if input.Status == enums.OrderStatusCancelled {
			return s.cancelTx(ctx, tx, repo, order, &actor, enums.EventOrderCancelled, "cancelled by administrator")
		}
		if !order.Status.CanAdvanceTo(input.Status) {
			return pkgerrors.Newf(pkgerrors.CodeBadRequest, "cannot move order from %s to %s", order.Status, input.Status)
		}

		updates := map[string]any{"status": input.Status}
		if tracking != nil {
			updates["tracking_number"] = *tracking
		}
		// Cash is collected on delivery.
		if input.Status == enums.OrderStatusDelivered && order.PaymentMethod == enums.PaymentMethodCashOnDelivery {
			updates["payment_status"] = enums.OrderPaymentPaid
		}
		ok, err := repo.TransitionStatus(ctx, order.ID, []enums.OrderStatus{order.Status}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order status changed, please reload")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				From:           order.Status,
				To:             input.Status,
				TrackingNumber: tracking,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	return detailFromModel(order), nil
}

func (s *service) ListVendorItems(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (pagination.Result[VendorItemDTO], error) {
	rows, total, err := s.repo.ListVendorItems(ctx, vendorID, params)
	if err != nil {
		return pagination.Result[VendorItemDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vendor order items")
	}
	out := make([]VendorItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, vendorItemFromModel(&rows[i]))
	}
	return pagination.NewResult(out, params, total), nil
}

func (s *service) ownedDetail(ctx context.Context, repo Repository, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindDetail(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func orderItemFromLine(line models.CartItem) (models.OrderItem, error) {
	product := line.Product
	if product == nil {
		return models.OrderItem{}, pkgerrors.New(pkgerrors.CodeBadRequest, "a product in the cart no longer exists")
	}
	if product.Status != enums.ProductStatusActive {
		return models.OrderItem{}, pkgerrors.Newf(pkgerrors.CodeBadRequest, "%s is no longer available", product.Name)
	}
	if line.SelectedVariantID != nil && line.Variant == nil {
		return models.OrderItem{}, pkgerrors.Newf(pkgerrors.CodeBadRequest, "the selected option of %s no longer exists", product.Name)
	}
	if line.Quantity > line.AvailableStock() {
		return models.OrderItem{}, pkgerrors.Newf(pkgerrors.CodeBadRequest, "insufficient stock for %s", product.Name)
	}

	item := models.OrderItem{
		ProductID:         product.ID,
		VendorID:          product.VendorID,
		SelectedVariantID: line.SelectedVariantID,
		ProductName:       product.Name,
		Quantity:          line.Quantity,
		PriceCents:        line.UnitPriceCents(),
	}
	if line.Variant != nil {
		name := line.Variant.Name
		item.VariantName = &name
	}
	return item, nil
}

func orderCreatedEvent(order *models.Order) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID:         item.ProductID,
			SelectedVariantID: item.SelectedVariantID,
			VendorID:          item.VendorID,
			Quantity:          item.Quantity,
			PriceCents:        item.PriceCents,
		})
	}
	return payloads.OrderCreatedEvent{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		UserID:           order.UserID,
		TotalAmountCents: order.TotalAmountCents,
		Currency:         order.Currency,
		PaymentMethod:    order.PaymentMethod,
		Items:            lines,
	}
}

func addressModel(userID uuid.UUID, in ShippingAddressInput) *models.ShippingAddress {
	return &models.ShippingAddress{
		UserID:     userID,
		FullName:   strings.TrimSpace(in.FullName),
		Phone:      strings.TrimSpace(in.Phone),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      trimmed(in.Line2),
		City:       strings.TrimSpace(in.City),
		State:      trimmed(in.State),
		PostalCode: trimmed(in.PostalCode),
		Country:    strings.TrimSpace(in.Country),
	}
}

func validateAddress(in ShippingAddressInput) error {
	missing := []string{}
	for field, value := range map[string]string{
		"full_name": in.FullName,
		"phone":     in.Phone,
		"line1":     in.Line1,
		"city":      in.City,
		"country":   in.Country,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	details := make(map[string]string, len(missing))
	for _, field := range missing {
		details["shipping_address."+field] = "is required"
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").WithDetails(details)
}

func cartItemIDs(ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart_item_ids must not be empty")
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart_item_ids must not contain empty ids")
		}
		if _, ok := seen[id]; ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "cart_item_ids lists %s more than once", id)
		}
		seen[id] = struct{}{}
	}
	return ids, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
