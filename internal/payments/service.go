package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/gateway"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/payloads"
)

// Service reconciles asynchronous gateway notifications against the payment
// axis of an order and drives the admin-side payment transitions. The order
// fulfillment status is never touched here; the two axes move independently.
type Service interface {
	CreateIntent(ctx context.Context, orderID uuid.UUID) (*gateway.Intent, error)
	// HandleNotification applies one verified gateway notification. Replays
	// and out-of-order deliveries resolve to success with no effect.
	HandleNotification(ctx context.Context, notification gateway.Notification) error
	// MarkPaid is the manual path for cash orders; it runs the same
	// reconciliation as a gateway approval, commissions included.
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
	RequestRefund(ctx context.Context, orderID uuid.UUID) error
	MarkRefunded(ctx context.Context, orderID uuid.UUID) error
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type commissionMaterializer interface {
	Materialize(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.CommissionRecord, error)
}

type intentCreator interface {
	CreateIntent(orderReference string, amountCents int64) (*gateway.Intent, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	commissions commissionMaterializer
	gateway     intentCreator
	logg        *logger.Logger
}

// NewService wires the payment reconciliation service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, commissionsSvc commissionMaterializer, gatewayClient intentCreator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if commissionsSvc == nil {
		return nil, fmt.Errorf("commission materializer required")
	}
	if gatewayClient == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		outbox:      outboxSvc,
		commissions: commissionsSvc,
		gateway:     gatewayClient,
		logg:        logg,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, orderID uuid.UUID) (*gateway.Intent, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var intent *gateway.Intent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.PaymentMethod == enums.PaymentMethodCash {
			return pkgerrors.New(pkgerrors.CodeValidation, "cash orders have no gateway intent")
		}
		if order.PaymentStatus != enums.PaymentStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment is already %s", order.PaymentStatus)
		}

		created, err := s.gateway.CreateIntent(order.ID.String(), order.TotalCents)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway intent")
		}

		payment, err := repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment == nil {
			payment = &models.Payment{
				ID:          uuid.New(),
				OrderID:     orderID,
				IntentID:    &created.IntentID,
				AmountCents: order.TotalCents,
				Status:      enums.PaymentStatusPending,
			}
			if err := repo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
			}
		} else {
			if err := repo.Update(ctx, payment.ID, map[string]any{"intent_id": created.IntentID}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh payment intent")
			}
		}

		intent = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return intent, nil
}

func (s *service) HandleNotification(ctx context.Context, notification gateway.Notification) error {
	orderID, err := uuid.Parse(notification.OrderReference)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification order reference is not an order id")
	}
	mapped := notification.Status.ToPaymentStatus()

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		payment, err := repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment == nil {
			payment = &models.Payment{
				ID:          uuid.New(),
				OrderID:     orderID,
				AmountCents: notification.AmountCents,
				Status:      enums.PaymentStatusPending,
			}
			if err := repo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
			}
		}

		if !payment.Status.Precedes(mapped) {
			// duplicate or out-of-order delivery: the stored status is at
			// least as far along the payment axis, nothing to apply
			return nil
		}

		from := payment.Status
		gatewayStatus := notification.Status.String()
		updates := map[string]any{
			"status":              mapped,
			"external_payment_id": notification.ExternalPaymentID,
			"gateway_status":      gatewayStatus,
		}
		if notification.FailureReason != "" {
			updates["failure_reason"] = notification.FailureReason
		}
		if err := repo.Update(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		if err := repo.UpdateOrderPaymentStatus(ctx, orderID, mapped); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
		}

		if mapped == enums.PaymentStatusPaid {
			if err := s.materializeCommissions(ctx, tx, orderID); err != nil {
				return err
			}
		}

		return s.emitStatusChange(ctx, tx, order, notification.ExternalPaymentID, from, mapped, notification.FailureReason)
	})
}

// materializeCommissions recognizes the order's revenue exactly once. A
// duplicate attempt means the ledger is already written; it is logged and
// swallowed so notification replays stay idempotent.
func (s *service) materializeCommissions(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	_, err := s.commissions.Materialize(ctx, tx, orderID)
	if err == nil {
		return nil
	}
	if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		logCtx := s.logg.WithOrderID(ctx, orderID.String())
		s.logg.Warn(logCtx, "commission materialization already done, skipping")
		return nil
	}
	return err
}

func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	return s.applyManualStatus(ctx, orderID, enums.PaymentStatusPaid, []enums.PaymentStatus{enums.PaymentStatusPending})
}

func (s *service) RequestRefund(ctx context.Context, orderID uuid.UUID) error {
	return s.applyManualStatus(ctx, orderID, enums.PaymentStatusRefundRequested, []enums.PaymentStatus{enums.PaymentStatusPaid})
}

func (s *service) MarkRefunded(ctx context.Context, orderID uuid.UUID) error {
	return s.applyManualStatus(ctx, orderID, enums.PaymentStatusRefunded, []enums.PaymentStatus{enums.PaymentStatusRefundRequested})
}

func (s *service) applyManualStatus(ctx context.Context, orderID uuid.UUID, next enums.PaymentStatus, allowedFrom []enums.PaymentStatus) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.PaymentStatus == next {
			return nil
		}
		from := order.PaymentStatus

		allowed := false
		for _, candidate := range allowedFrom {
			if order.PaymentStatus == candidate {
				allowed = true
				break
			}
		}
		if !allowed {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment is %s, cannot move to %s", order.PaymentStatus, next)
		}

		payment, err := repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		externalID := ""
		if payment == nil {
			payment = &models.Payment{
				ID:          uuid.New(),
				OrderID:     orderID,
				AmountCents: order.TotalCents,
				Status:      enums.PaymentStatusPending,
			}
			if err := repo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
			}
		} else if payment.ExternalPaymentID != nil {
			externalID = *payment.ExternalPaymentID
		}

		if err := repo.Update(ctx, payment.ID, map[string]any{"status": next}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		if err := repo.UpdateOrderPaymentStatus(ctx, orderID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
		}

		if next == enums.PaymentStatusPaid {
			if err := s.materializeCommissions(ctx, tx, orderID); err != nil {
				return err
			}
		}

		return s.emitStatusChange(ctx, tx, order, externalID, from, next, "")
	})
}

func (s *service) emitStatusChange(ctx context.Context, tx *gorm.DB, order *models.Order, externalID string, from, to enums.PaymentStatus, failureReason string) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventPaymentStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: payloads.PaymentStatusChangedEvent{
			OrderID:           order.ID,
			RestaurantID:      order.RestaurantID,
			CustomerID:        order.CustomerID,
			ExternalPaymentID: externalID,
			From:              from,
			To:                to,
			AmountCents:       order.TotalCents,
			FailureReason:     failureReason,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}
