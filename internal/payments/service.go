package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/config"
	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/flutterwave"
	"github.com/iwanyu/marketplace-backend/pkg/logger"
	"github.com/iwanyu/marketplace-backend/pkg/outbox"
	"github.com/iwanyu/marketplace-backend/pkg/outbox/payloads"
	"github.com/iwanyu/marketplace-backend/pkg/security"
	"github.com/iwanyu/marketplace-backend/pkg/types"
)

const (
	sourceInitialize = "initialize"
	sourceRetry      = "retry"
	sourceVerify     = "verify"
	sourceWebhook    = "webhook"
)

// Gateway is the subset of the Flutterwave client the service calls.
type Gateway interface {
	InitializePayment(ctx context.Context, req flutterwave.PaymentRequest) (*flutterwave.PaymentLink, error)
	VerifyTransaction(ctx context.Context, transactionID string) (*flutterwave.Transaction, error)
}

// DeliveryGuard remembers processed webhook deliveries.
type DeliveryGuard interface {
	CheckAndMarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
	Release(ctx context.Context, provider, eventID string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives hosted checkout against Flutterwave.
type Service interface {
	Initialize(ctx context.Context, userID uuid.UUID, input InitializeInput) (*CheckoutDTO, error)
	Verify(ctx context.Context, userID uuid.UUID, transactionID string) (*VerifyDTO, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error)
	Retry(ctx context.Context, userID, orderID uuid.UUID, input RetryInput) (*CheckoutDTO, error)
	Status(ctx context.Context, userID, orderID uuid.UUID) (*StatusDTO, error)
}

// ServiceParams wires the payment service.
type ServiceParams struct {
	Repo    *Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Gateway Gateway
	// Guard is optional; the conditional PENDING update already makes
	// settlement idempotent.
	Guard  DeliveryGuard
	Config config.FlutterwaveConfig
	Logger *logger.Logger
	Clock  func() time.Time
}

type service struct {
	repo    *Repository
	tx      txRunner
	outbox  outbox.Emitter
	gateway Gateway
	guard   DeliveryGuard
	cfg     config.FlutterwaveConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService validates params and builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	svc := &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		gateway: params.Gateway,
		guard:   params.Guard,
		cfg:     params.Config,
		logg:    params.Logger,
		now:     params.Clock,
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	return svc, nil
}

func (s *service) Initialize(ctx context.Context, userID uuid.UUID, input InitializeInput) (*CheckoutDTO, error) {
	order, err := s.ownedOrder(ctx, userID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != enums.OrderPaymentPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeBadRequest, "order payment is already %s", strings.ToLower(string(order.PaymentStatus)))
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "order is cancelled")
	}
	reference := fmt.Sprintf("iwanyu_%s_%d", order.ID, s.now().UnixMilli())
	return s.start(ctx, order, reference, input.RedirectURL, sourceInitialize)
}

func (s *service) Retry(ctx context.Context, userID, orderID uuid.UUID, input RetryInput) (*CheckoutDTO, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == enums.OrderPaymentPaid {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "order is already paid")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "order is cancelled")
	}
	reference := fmt.Sprintf("iwanyu_retry_%s_%d", order.ID, s.now().UnixMilli())
	return s.start(ctx, order, reference, input.RedirectURL, sourceRetry)
}

// start opens a hosted checkout and records the PENDING attempt.
func (s *service) start(ctx context.Context, order *models.Order, reference string, redirect *string, source string) (*CheckoutDTO, error) {
	req := flutterwave.PaymentRequest{
		TxRef:       reference,
		Amount:      types.FromCents(order.TotalAmountCents),
		Currency:    order.Currency,
		RedirectURL: s.redirectURL(redirect),
		Meta: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		},
		Title: "Order " + order.OrderNumber,
	}
	if order.User != nil {
		req.Customer = flutterwave.Customer{
			Email: order.User.Email,
			Name:  strings.TrimSpace(order.User.FirstName + " " + order.User.LastName),
		}
		if order.User.Phone != nil {
			req.Customer.PhoneNumber = *order.User.Phone
		}
	}

	link, err := s.gateway.InitializePayment(ctx, req)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", order.ID.String()), "flutterwave initialize failed", err)
		if pkgerrors.CodeOf(err) == pkgerrors.CodeDependency {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}

	metadata := map[string]any{"payment_link": link.Link, "source": source}
	if link.Raw != nil {
		metadata["gateway_response"] = link.Raw
	}
	payment := &models.Payment{
		OrderID:               order.ID,
		Provider:              enums.PaymentProviderFlutterwave,
		ProviderTransactionID: reference,
		AmountCents:           order.TotalAmountCents,
		Currency:              order.Currency,
		Status:                enums.PaymentStatusPending,
		Metadata:              metadata,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentInitialized,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Role: enums.UserRoleCustomer},
			Data:          paymentEvent(payment, source),
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment")
	}
	return &CheckoutDTO{PaymentLink: link.Link, Reference: reference, PaymentID: payment.ID}, nil
}

func (s *service) Verify(ctx context.Context, userID uuid.UUID, transactionID string) (*VerifyDTO, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	txn, err := s.gateway.VerifyTransaction(ctx, transactionID)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "transaction_id", transactionID), "flutterwave verify failed", err)
		if pkgerrors.CodeOf(err) == pkgerrors.CodeDependency {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}

	payment, err := s.repo.FindByReference(ctx, txn.TxRef)
	if err != nil {
		return nil, notFound(err, "payment not found")
	}
	order, err := s.repo.FindOrder(ctx, payment.OrderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another customer")
	}

	if payment.Status == enums.PaymentStatusPending {
		success := txn.Successful() && settles(payment, txn.AmountCents(), txn.Currency)
		if err := s.settle(ctx, payment, success, chargeID(txn.ID, txn.FlwRef), sourceVerify); err != nil {
			return nil, err
		}
		if order, err = s.repo.FindOrder(ctx, payment.OrderID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
	}

	out := &VerifyDTO{
		Verified:      payment.Status == enums.PaymentStatusCompleted,
		PaymentID:     payment.ID,
		Reference:     payment.ProviderTransactionID,
		Status:        payment.Status,
		OrderID:       order.ID,
		OrderStatus:   order.Status,
		PaymentStatus: order.PaymentStatus,
	}
	if !out.Verified {
		out.Message = "payment was not successful"
	}
	return out, nil
}

// HandleWebhook rejects unsigned deliveries. Once the signature checks out
// every outcome is acknowledged; failures are logged and a later delivery,
// verify or retry settles the attempt.
func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !s.verifySignature(body, signature) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	evt, err := flutterwave.ParseWebhookEvent(body)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("malformed flutterwave webhook: %v", err))
		return &WebhookResult{Reason: "invalid payload"}, nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"event": evt.Event, "tx_ref": evt.Data.TxRef})
	if evt.Event != flutterwave.EventChargeCompleted {
		s.logg.Info(ctx, "ignoring flutterwave event")
		return &WebhookResult{Reason: "event ignored"}, nil
	}

	eventID := evt.EventID()
	marked := false
	if s.guard != nil && eventID != "" {
		seen, err := s.guard.CheckAndMarkProcessed(ctx, string(enums.PaymentProviderFlutterwave), eventID)
		switch {
		case err != nil:
			// The PENDING guard on the row still prevents double settlement.
			s.logg.Warn(ctx, fmt.Sprintf("webhook dedupe unavailable: %v", err))
		case seen:
			return &WebhookResult{Reason: "duplicate delivery"}, nil
		default:
			marked = true
		}
	}

	result, err := s.applyCharge(ctx, evt)
	if err == nil {
		return result, nil
	}
	s.logg.Error(ctx, "flutterwave webhook processing failed", err)
	if marked {
		if relErr := s.guard.Release(ctx, string(enums.PaymentProviderFlutterwave), eventID); relErr != nil {
			s.logg.Warn(ctx, fmt.Sprintf("release webhook mark: %v", relErr))
		}
	}
	return &WebhookResult{Reason: "processing failed"}, nil
}

func (s *service) applyCharge(ctx context.Context, evt *flutterwave.WebhookEvent) (*WebhookResult, error) {
	payment, err := s.repo.FindByReference(ctx, evt.Data.TxRef)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logg.Warn(ctx, "webhook for unknown payment reference")
		return &WebhookResult{Reason: "unknown reference"}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	if payment.Status != enums.PaymentStatusPending {
		return &WebhookResult{Reason: "payment already settled"}, nil
	}

	success := strings.EqualFold(evt.Data.Status, flutterwave.StatusSuccessful) &&
		settles(payment, evt.AmountCents(), evt.Data.Currency)
	id, _ := strconv.ParseInt(evt.Data.ID.String(), 10, 64)
	if err := s.settle(ctx, payment, success, chargeID(id, evt.Data.FlwRef), sourceWebhook); err != nil {
		return nil, err
	}
	return &WebhookResult{Processed: true}, nil
}

// settle completes or fails a PENDING attempt and mirrors it onto the order.
// payment.Status reflects the stored state afterwards.
func (s *service) settle(ctx context.Context, payment *models.Payment, success bool, charge *string, source string) error {
	target := enums.PaymentStatusFailed
	eventType := enums.EventPaymentFailed
	if success {
		target = enums.PaymentStatusCompleted
		eventType = enums.EventPaymentCompleted
	}

	applied, refundDue := false, false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.Settle(ctx, payment.ID, target, charge)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		applied = true
		if success {
			var status enums.OrderStatus
			status, err = repo.MarkOrderPaid(ctx, payment.OrderID)
			refundDue = status == enums.OrderStatusCancelled
		} else {
			err = repo.MarkOrderFailed(ctx, payment.OrderID)
		}
		if err != nil {
			return err
		}
		settled := *payment
		settled.Status = target
		settled.ProviderChargeID = charge
		if err := s.emitPayment(ctx, tx, eventType, &settled, source); err != nil {
			return err
		}
		if refundDue {
			return s.emitPayment(ctx, tx, enums.EventPaymentRefundDue, &settled, source)
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payment")
	}

	if applied {
		payment.Status = target
		payment.ProviderChargeID = charge
		fields := s.logg.WithFields(ctx, map[string]any{
			"payment_id": payment.ID.String(),
			"order_id":   payment.OrderID.String(),
			"status":     string(target),
			"source":     source,
		})
		if refundDue {
			s.logg.Error(fields, "payment.refund_required", errors.New("charge completed for a cancelled order"))
			return nil
		}
		s.logg.Info(fields, "payment settled")
		return nil
	}
	current, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload payment")
	}
	*payment = *current
	return nil
}

func (s *service) emitPayment(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, payment *models.Payment, source string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data:          paymentEvent(payment, source),
	})
}

func (s *service) Status(ctx context.Context, userID, orderID uuid.UUID) (*StatusDTO, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	out := &StatusDTO{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		OrderStatus:   order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		TotalAmount:   types.FromCents(order.TotalAmountCents),
		Currency:      order.Currency,
		Payments:      make([]PaymentDTO, 0, len(rows)),
	}
	for i := range rows {
		out.Payments = append(out.Payments, paymentFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) ownedOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) redirectURL(requested *string) string {
	if requested != nil && strings.TrimSpace(*requested) != "" {
		return strings.TrimSpace(*requested)
	}
	return s.cfg.RedirectURL
}

func (s *service) verifySignature(body []byte, signature string) bool {
	secret := strings.TrimSpace(s.cfg.WebhookSecret)
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	return security.VerifyHMACSHA256(secret, body, signature)
}

// settles reports whether a gateway amount covers the recorded attempt.
func settles(payment *models.Payment, amountCents int64, currency string) bool {
	if amountCents < payment.AmountCents {
		return false
	}
	return currency == "" || strings.EqualFold(currency, payment.Currency)
}

func chargeID(id int64, flwRef string) *string {
	switch {
	case id > 0:
		v := strconv.FormatInt(id, 10)
		return &v
	case flwRef != "":
		return &flwRef
	}
	return nil
}

func paymentEvent(p *models.Payment, source string) payloads.PaymentEvent {
	return payloads.PaymentEvent{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		Reference:   p.ProviderTransactionID,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Status:      p.Status,
		Source:      source,
	}
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
