package commissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emersonbarrios/fooddash-backend/internal/team"
	"github.com/emersonbarrios/fooddash-backend/pkg/db"
	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox"
	"github.com/emersonbarrios/fooddash-backend/pkg/outbox/payloads"
)

// PaymentBatch is the result of a bulk payout.
type PaymentBatch struct {
	BatchID     uuid.UUID
	MemberID    uuid.UUID
	AmountCents int64
	RecordCount int
}

// Service is the commission ledger: it materializes per-member records when
// an order's revenue is recognized and drives the payout lifecycle.
type Service interface {
	// Materialize runs inside the caller's transaction so the ledger write
	// commits atomically with the payment transition that triggered it.
	Materialize(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.CommissionRecord, error)
	UpdateStatus(ctx context.Context, recordID uuid.UUID, status enums.CommissionStatus) (*models.CommissionRecord, error)
	RecordPayment(ctx context.Context, memberID uuid.UUID, recordIDs []uuid.UUID) (*PaymentBatch, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionRecord, error)
	ListByMember(ctx context.Context, memberID uuid.UUID, status enums.CommissionStatus) ([]models.CommissionRecord, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	team   team.Service
	logg   *logger.Logger
}

// NewService wires the commission ledger service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, teamSvc team.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if teamSvc == nil {
		return nil, fmt.Errorf("team service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		team:   teamSvc,
		logg:   logg,
	}, nil
}

func (s *service) Materialize(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.CommissionRecord, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	repo := s.repo.WithTx(tx)

	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	exists, err := repo.ExistsForOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing records")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "commission already materialized").
			WithDetails(map[string]any{"order_id": orderID.String()})
	}

	shares, err := s.team.WithTx(tx).ListActiveMembersWithPercentage(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active members")
	}
	allocations := splitPool(order.PlatformCommissionCents, shares)
	if len(allocations) == 0 {
		logCtx := s.logg.WithOrderID(ctx, orderID.String())
		s.logg.Info(logCtx, "no active revenue shares, skipping materialization")
		return nil, nil
	}

	records := make([]models.CommissionRecord, len(allocations))
	for i, alloc := range allocations {
		records[i] = models.CommissionRecord{
			ID:          uuid.New(),
			OrderID:     orderID,
			MemberID:    alloc.MemberID,
			Percentage:  alloc.Percentage,
			AmountCents: alloc.AmountCents,
			Status:      enums.CommissionStatusPending,
		}
	}
	if err := repo.CreateRecords(ctx, records); err != nil {
		if db.IsUniqueViolation(err, "ux_commission_records_order_member") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "commission already materialized").
				WithDetails(map[string]any{"order_id": orderID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission records")
	}

	entries := make([]payloads.CommissionEntry, len(records))
	for i, record := range records {
		entries[i] = payloads.CommissionEntry{
			RecordID:    record.ID,
			MemberID:    record.MemberID,
			Percentage:  record.Percentage,
			AmountCents: record.AmountCents,
		}
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventCommissionMaterialized,
		AggregateType: enums.AggregateCommission,
		AggregateID:   orderID,
		Version:       1,
		Data: payloads.CommissionMaterializedEvent{
			OrderID:      orderID,
			RestaurantID: order.RestaurantID,
			PoolCents:    order.PlatformCommissionCents,
			Entries:      entries,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *service) UpdateStatus(ctx context.Context, recordID uuid.UUID, status enums.CommissionStatus) (*models.CommissionRecord, error) {
	if recordID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown commission status")
	}

	var updated *models.CommissionRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindRecord(ctx, recordID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission record")
		}
		if record == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "commission record not found")
		}
		if err := repo.UpdateRecordStatus(ctx, recordID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission status")
		}
		record.Status = status
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) RecordPayment(ctx context.Context, memberID uuid.UUID, recordIDs []uuid.UUID) (*PaymentBatch, error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}

	var batch *PaymentBatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var targets []models.CommissionRecord
		var err error
		if len(recordIDs) > 0 {
			targets, err = repo.FindRecordsByIDs(ctx, recordIDs)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission records")
			}
			if len(targets) != len(recordIDs) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "one or more commission records not found")
			}
			for _, record := range targets {
				if record.MemberID != memberID {
					return pkgerrors.New(pkgerrors.CodeValidation, "commission record belongs to another member").
						WithDetails(map[string]any{"record_id": record.ID.String()})
				}
				if record.Status != enums.CommissionStatusApproved && record.Status != enums.CommissionStatusPaid {
					return pkgerrors.Newf(pkgerrors.CodeStateConflict, "commission record is %s, expected approved", record.Status).
						WithDetails(map[string]any{"record_id": record.ID.String()})
				}
			}
		} else {
			targets, err = repo.ListByMemberAndStatus(ctx, memberID, enums.CommissionStatusApproved)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list approved records")
			}
		}
		if len(targets) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no approved commission records to pay")
		}

		var total int64
		ids := make([]uuid.UUID, len(targets))
		for i, record := range targets {
			total += record.AmountCents
			ids[i] = record.ID
		}
		paymentBatch := &models.CommissionPaymentBatch{
			ID:          uuid.New(),
			MemberID:    memberID,
			AmountCents: total,
			RecordCount: len(targets),
		}
		if err := repo.CreateBatch(ctx, paymentBatch); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment batch")
		}
		affected, err := repo.MarkPaid(ctx, ids, paymentBatch.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark records paid")
		}
		if affected != int64(len(ids)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "commission records changed concurrently")
		}

		batch = &PaymentBatch{
			BatchID:     paymentBatch.ID,
			MemberID:    memberID,
			AmountCents: total,
			RecordCount: len(targets),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionRecord, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	records, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission records")
	}
	return records, nil
}

func (s *service) ListByMember(ctx context.Context, memberID uuid.UUID, status enums.CommissionStatus) ([]models.CommissionRecord, error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}
	records, err := s.repo.ListByMemberAndStatus(ctx, memberID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission records")
	}
	return records, nil
}
