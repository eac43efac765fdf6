package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/api/responses"
	"github.com/emersonbarrios/fooddash-backend/api/validators"
	"github.com/emersonbarrios/fooddash-backend/internal/commissions"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
)

type updateCommissionStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type recordCommissionPaymentRequest struct {
	MemberID  string   `json:"member_id" validate:"required,uuid"`
	RecordIDs []string `json:"record_ids" validate:"omitempty,dive,uuid"`
}

// UpdateCommissionStatus moves one ledger record through its approval
// lifecycle.
func UpdateCommissionStatus(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		recordID, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateCommissionStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseCommissionStatus(req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid commission status"))
			return
		}

		record, err := svc.UpdateStatus(ctx, recordID, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// RecordCommissionPayment batches approved records for a member into one
// payout. Omitting record_ids pays everything approved.
func RecordCommissionPayment(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req recordCommissionPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		memberID, err := uuid.Parse(req.MemberID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "member_id must be a valid uuid"))
			return
		}

		var recordIDs []uuid.UUID
		for _, raw := range req.RecordIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "record_ids must be valid uuids"))
				return
			}
			recordIDs = append(recordIDs, id)
		}

		batch, err := svc.RecordPayment(ctx, memberID, recordIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

// ListOrderCommissions returns the ledger rows materialized for one order.
func ListOrderCommissions(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		records, err := svc.ListByOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

// ListMemberCommissions returns a member's ledger rows, optionally filtered
// by status.
func ListMemberCommissions(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		memberID, err := validators.ParsePathUUID(r, "memberId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var status enums.CommissionStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseCommissionStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid commission status"))
				return
			}
			status = parsed
		}

		records, err := svc.ListByMember(ctx, memberID, status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}
