package payments

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/gateway"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox"
)

type stubPaymentsRepo struct {
	order   *models.Order
	payment *models.Payment
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPaymentsRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order != nil && s.order.ID == orderID {
		return s.order, nil
	}
	return nil, nil
}

func (s *stubPaymentsRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	if s.payment != nil && s.payment.OrderID == orderID {
		return s.payment, nil
	}
	return nil, nil
}

func (s *stubPaymentsRepo) FindByExternalID(ctx context.Context, externalID string) (*models.Payment, error) {
	if s.payment != nil && s.payment.ExternalPaymentID != nil && *s.payment.ExternalPaymentID == externalID {
		return s.payment, nil
	}
	return nil, nil
}

func (s *stubPaymentsRepo) Create(ctx context.Context, payment *models.Payment) error {
	s.payment = payment
	return nil
}

func (s *stubPaymentsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.payment == nil || s.payment.ID != id {
		return nil
	}
	if status, ok := updates["status"].(enums.PaymentStatus); ok {
		s.payment.Status = status
	}
	if external, ok := updates["external_payment_id"].(string); ok {
		s.payment.ExternalPaymentID = &external
	}
	if intentID, ok := updates["intent_id"].(string); ok {
		s.payment.IntentID = &intentID
	}
	if reason, ok := updates["failure_reason"].(string); ok {
		s.payment.FailureReason = &reason
	}
	return nil
}

func (s *stubPaymentsRepo) UpdateOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error {
	if s.order != nil && s.order.ID == orderID {
		s.order.PaymentStatus = status
	}
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubMaterializer struct {
	calls        int
	materialized map[uuid.UUID]bool
}

func newStubMaterializer() *stubMaterializer {
	return &stubMaterializer{materialized: make(map[uuid.UUID]bool)}
}

func (s *stubMaterializer) Materialize(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.CommissionRecord, error) {
	s.calls++
	if s.materialized[orderID] {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "commission already materialized")
	}
	s.materialized[orderID] = true
	return []models.CommissionRecord{{ID: uuid.New(), OrderID: orderID}}, nil
}

type stubIntentCreator struct {
	intent *gateway.Intent
	err    error
	calls  int
}

func (s *stubIntentCreator) CreateIntent(orderReference string, amountCents int64) (*gateway.Intent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.intent, nil
}

func newTestService(t *testing.T, repo Repository, ob *stubOutbox, mat *stubMaterializer, gw *stubIntentCreator) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "payments-test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(repo, stubTxRunner{}, ob, mat, gw, logg)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func approvedNotification(orderID uuid.UUID) gateway.Notification {
	return gateway.Notification{
		ExternalPaymentID: "ext-12345",
		OrderReference:    orderID.String(),
		Status:            enums.GatewayStatusApproved,
		AmountCents:       3500,
	}
}

func TestHandleNotificationApproved(t *testing.T) {
	orderID := uuid.New()
	repo := &stubPaymentsRepo{
		order: &models.Order{ID: orderID, RestaurantID: uuid.New(), TotalCents: 3500, PaymentStatus: enums.PaymentStatusPending},
	}
	ob := &stubOutbox{}
	mat := newStubMaterializer()
	svc := newTestService(t, repo, ob, mat, &stubIntentCreator{})

	err := svc.HandleNotification(context.Background(), approvedNotification(orderID))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected order payment paid got %s", repo.order.PaymentStatus)
	}
	if repo.payment == nil || repo.payment.Status != enums.PaymentStatusPaid {
		t.Fatalf("expected payment row paid")
	}
	if mat.calls != 1 {
		t.Fatalf("expected one materialization got %d", mat.calls)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventPaymentStatusChanged {
		t.Fatalf("expected payment status event, got %+v", ob.events)
	}
}

func TestHandleNotificationDuplicateDelivery(t *testing.T) {
	orderID := uuid.New()
	repo := &stubPaymentsRepo{
		order: &models.Order{ID: orderID, RestaurantID: uuid.New(), TotalCents: 3500, PaymentStatus: enums.PaymentStatusPending},
	}
	ob := &stubOutbox{}
	mat := newStubMaterializer()
	svc := newTestService(t, repo, ob, mat, &stubIntentCreator{})

	notification := approvedNotification(orderID)
	if err := svc.HandleNotification(context.Background(), notification); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := svc.HandleNotification(context.Background(), notification); err != nil {
		t.Fatalf("duplicate delivery must be a no-op, got %v", err)
	}

	if repo.order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status must stay paid")
	}
	if len(mat.materialized) != 1 {
		t.Fatalf("expected exactly one materialization")
	}
	if len(ob.events) != 1 {
		t.Fatalf("duplicate must not emit a second event, got %d", len(ob.events))
	}
}

func TestHandleNotificationRejectedTouchesPaymentOnly(t *testing.T) {
	orderID := uuid.New()
	repo := &stubPaymentsRepo{
		order: &models.Order{ID: orderID, RestaurantID: uuid.New(), TotalCents: 3500, PaymentStatus: enums.PaymentStatusPending, Status: enums.OrderStatusReceived},
	}
	ob := &stubOutbox{}
	mat := newStubMaterializer()
	svc := newTestService(t, repo, ob, mat, &stubIntentCreator{})

	err := svc.HandleNotification(context.Background(), gateway.Notification{
		ExternalPaymentID: "ext-9",
		OrderReference:    orderID.String(),
		Status:            enums.GatewayStatusRejected,
		FailureReason:     "insufficient_funds",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.order.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("expected failed got %s", repo.order.PaymentStatus)
	}
	if repo.order.Status != enums.OrderStatusReceived {
		t.Fatalf("order fulfillment status must not change on payment failure")
	}
	if mat.calls != 0 {
		t.Fatalf("no materialization on failed payment")
	}
	if repo.payment.FailureReason == nil || *repo.payment.FailureReason != "insufficient_funds" {
		t.Fatalf("failure reason not recorded")
	}
}

func TestHandleNotificationStalePendingIgnored(t *testing.T) {
	orderID := uuid.New()
	paymentID := uuid.New()
	repo := &stubPaymentsRepo{
		order:   &models.Order{ID: orderID, RestaurantID: uuid.New(), TotalCents: 3500, PaymentStatus: enums.PaymentStatusPaid},
		payment: &models.Payment{ID: paymentID, OrderID: orderID, Status: enums.PaymentStatusPaid},
	}
	ob := &stubOutbox{}
	svc := newTestService(t, repo, ob, newStubMaterializer(), &stubIntentCreator{})

	err := svc.HandleNotification(context.Background(), gateway.Notification{
		ExternalPaymentID: "ext-1",
		OrderReference:    orderID.String(),
		Status:            enums.GatewayStatusInProcess,
	})
	if err != nil {
		t.Fatalf("stale notification must be a no-op, got %v", err)
	}
	if repo.payment.Status != enums.PaymentStatusPaid {
		t.Fatalf("paid status must not regress")
	}
	if len(ob.events) != 0 {
		t.Fatalf("no event expected, got %d", len(ob.events))
	}
}

func TestHandleNotificationLateApprovalAfterRefundIgnored(t *testing.T) {
	orderID := uuid.New()
	paymentID := uuid.New()
	repo := &stubPaymentsRepo{
		order:   &models.Order{ID: orderID, RestaurantID: uuid.New(), TotalCents: 3500, PaymentStatus: enums.PaymentStatusRefundRequested},
		payment: &models.Payment{ID: paymentID, OrderID: orderID, Status: enums.PaymentStatusRefundRequested},
	}
	ob := &stubOutbox{}
	mat := newStubMaterializer()
	svc := newTestService(t, repo, ob, mat, &stubIntentCreator{})

	err := svc.HandleNotification(context.Background(), approvedNotification(orderID))
	if err != nil {
		t.Fatalf("redelivered approval must be a no-op, got %v", err)
	}
	if repo.payment.Status != enums.PaymentStatusRefundRequested {
		t.Fatalf("refund state must survive a late approval, got %s", repo.payment.Status)
	}
	if repo.order.PaymentStatus != enums.PaymentStatusRefundRequested {
		t.Fatalf("order payment status must not regress, got %s", repo.order.PaymentStatus)
	}
	if mat.calls != 0 {
		t.Fatalf("no materialization on a stale approval")
	}
	if len(ob.events) != 0 {
		t.Fatalf("no event expected, got %d", len(ob.events))
	}
}

func TestHandleNotificationLateRejectionAfterPaidIgnored(t *testing.T) {
	orderID := uuid.New()
	paymentID := uuid.New()
	repo := &stubPaymentsRepo{
		order:   &models.Order{ID: orderID, RestaurantID: uuid.New(), TotalCents: 3500, PaymentStatus: enums.PaymentStatusPaid},
		payment: &models.Payment{ID: paymentID, OrderID: orderID, Status: enums.PaymentStatusPaid},
	}
	ob := &stubOutbox{}
	svc := newTestService(t, repo, ob, newStubMaterializer(), &stubIntentCreator{})

	err := svc.HandleNotification(context.Background(), gateway.Notification{
		ExternalPaymentID: "ext-12345",
		OrderReference:    orderID.String(),
		Status:            enums.GatewayStatusRejected,
		FailureReason:     "insufficient_funds",
	})
	if err != nil {
		t.Fatalf("late rejection must be a no-op, got %v", err)
	}
	if repo.payment.Status != enums.PaymentStatusPaid {
		t.Fatalf("paid must not flip to failed, got %s", repo.payment.Status)
	}
	if len(ob.events) != 0 {
		t.Fatalf("no event expected, got %d", len(ob.events))
	}
}

func TestHandleNotificationBadOrderReference(t *testing.T) {
	svc := newTestService(t, &stubPaymentsRepo{}, &stubOutbox{}, newStubMaterializer(), &stubIntentCreator{})

	err := svc.HandleNotification(context.Background(), gateway.Notification{OrderReference: "not-a-uuid"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION got %v", err)
	}
}

func TestMarkPaidCashOrder(t *testing.T) {
	orderID := uuid.New()
	repo := &stubPaymentsRepo{
		order: &models.Order{ID: orderID, RestaurantID: uuid.New(), TotalCents: 2000, PaymentMethod: enums.PaymentMethodCash, PaymentStatus: enums.PaymentStatusPending},
	}
	ob := &stubOutbox{}
	mat := newStubMaterializer()
	svc := newTestService(t, repo, ob, mat, &stubIntentCreator{})

	if err := svc.MarkPaid(context.Background(), orderID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid got %s", repo.order.PaymentStatus)
	}
	if mat.calls != 1 {
		t.Fatalf("cash settlement must materialize commissions")
	}

	// second call is a no-op, not a second ledger write
	if err := svc.MarkPaid(context.Background(), orderID); err != nil {
		t.Fatalf("repeat mark paid must be a no-op, got %v", err)
	}
	if mat.calls != 1 {
		t.Fatalf("no second materialization expected")
	}
}

func TestRefundFlow(t *testing.T) {
	orderID := uuid.New()
	paymentID := uuid.New()
	repo := &stubPaymentsRepo{
		order:   &models.Order{ID: orderID, RestaurantID: uuid.New(), TotalCents: 2000, PaymentStatus: enums.PaymentStatusPaid},
		payment: &models.Payment{ID: paymentID, OrderID: orderID, Status: enums.PaymentStatusPaid},
	}
	svc := newTestService(t, repo, &stubOutbox{}, newStubMaterializer(), &stubIntentCreator{})

	if err := svc.RequestRefund(context.Background(), orderID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.order.PaymentStatus != enums.PaymentStatusRefundRequested {
		t.Fatalf("expected refund_requested got %s", repo.order.PaymentStatus)
	}

	if err := svc.MarkRefunded(context.Background(), orderID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.order.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded got %s", repo.order.PaymentStatus)
	}
}

func TestRefundRequiresPaidOrder(t *testing.T) {
	orderID := uuid.New()
	repo := &stubPaymentsRepo{
		order: &models.Order{ID: orderID, PaymentStatus: enums.PaymentStatusPending},
	}
	svc := newTestService(t, repo, &stubOutbox{}, newStubMaterializer(), &stubIntentCreator{})

	err := svc.RequestRefund(context.Background(), orderID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT got %v", err)
	}
}

func TestCreateIntent(t *testing.T) {
	orderID := uuid.New()
	repo := &stubPaymentsRepo{
		order: &models.Order{ID: orderID, TotalCents: 4000, PaymentMethod: enums.PaymentMethodGateway, PaymentStatus: enums.PaymentStatusPending},
	}
	gw := &stubIntentCreator{intent: &gateway.Intent{IntentID: "int-1", RedirectURL: "https://pay.example/int-1"}}
	svc := newTestService(t, repo, &stubOutbox{}, newStubMaterializer(), gw)

	intent, err := svc.CreateIntent(context.Background(), orderID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if intent.IntentID != "int-1" {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if repo.payment == nil || repo.payment.IntentID == nil || *repo.payment.IntentID != "int-1" {
		t.Fatalf("payment row must record the intent id")
	}
}

func TestCreateIntentRejectsCashOrder(t *testing.T) {
	orderID := uuid.New()
	repo := &stubPaymentsRepo{
		order: &models.Order{ID: orderID, TotalCents: 4000, PaymentMethod: enums.PaymentMethodCash, PaymentStatus: enums.PaymentStatusPending},
	}
	svc := newTestService(t, repo, &stubOutbox{}, newStubMaterializer(), &stubIntentCreator{})

	_, err := svc.CreateIntent(context.Background(), orderID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION got %v", err)
	}
}
