package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/api/middleware"
	"github.com/emersonbarrios/fooddash-backend/api/responses"
	"github.com/emersonbarrios/fooddash-backend/api/validators"
	"github.com/emersonbarrios/fooddash-backend/internal/deliveries"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
)

type courierLocationRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

func courierFromRequest(r *http.Request) (uuid.UUID, error) {
	courierID, ok := middleware.ActorIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing courier identity")
	}
	return courierID, nil
}

// ClaimDelivery lets the authenticated courier claim a ready order. Losing a
// claim race returns a retryable conflict.
func ClaimDelivery(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		courierID, err := courierFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Claim(ctx, courierID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ReleaseDelivery gives a claimed order back to the pool.
func ReleaseDelivery(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		courierID, err := courierFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Release(ctx, courierID, orderID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// MarkDeliveryPickedUp moves the courier's claimed order onto the road.
func MarkDeliveryPickedUp(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		courierID, err := courierFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.MarkPickedUp(ctx, courierID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// MarkDeliveryDelivered completes the courier's in-flight order.
func MarkDeliveryDelivered(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		courierID, err := courierFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.MarkDelivered(ctx, courierID, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateCourierLocation ingests a position sample. The response is always
// accepted; samples without an order in flight are dropped downstream.
func UpdateCourierLocation(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		courierID, err := courierFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req courierLocationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		svc.UpdateLocation(ctx, courierID, req.Lat, req.Lng)
		responses.WriteSuccessStatus(w, http.StatusAccepted, nil)
	}
}

// ListAvailableDeliveries pages through ready, unclaimed platform-fleet orders.
func ListAvailableDeliveries(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListAvailable(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
