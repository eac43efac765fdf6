package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/api/middleware"
	"github.com/emersonbarrios/fooddash-backend/api/responses"
	"github.com/emersonbarrios/fooddash-backend/api/validators"
	internalorders "github.com/emersonbarrios/fooddash-backend/internal/orders"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	"github.com/emersonbarrios/fooddash-backend/pkg/pagination"
)

type createOrderItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Qty       int     `json:"qty" validate:"required,min=1"`
	Note      *string `json:"note" validate:"omitempty,max=500"`
}

type createOrderRequest struct {
	RestaurantID    string                   `json:"restaurant_id" validate:"required,uuid"`
	Type            string                   `json:"type" validate:"required"`
	DeliveryMethod  *string                  `json:"delivery_method"`
	DeliveryAddress *string                  `json:"delivery_address" validate:"omitempty,max=500"`
	DeliveryZone    *string                  `json:"delivery_zone" validate:"omitempty,max=100"`
	DeliveryLat     *float64                 `json:"delivery_lat"`
	DeliveryLng     *float64                 `json:"delivery_lng"`
	PaymentMethod   string                   `json:"payment_method" validate:"required"`
	Note            *string                  `json:"note" validate:"omitempty,max=500"`
	Items           []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type transitionOrderRequest struct {
	ExpectedStatus string `json:"expected_status" validate:"required"`
	NextStatus     string `json:"next_status" validate:"required"`
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	actorID, ok := middleware.ActorIDFromContext(r.Context())
	if !ok {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity")
	}
	role, ok := middleware.RoleFromContext(r.Context())
	if !ok {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor role")
	}
	return internalorders.Actor{ID: actorID, Role: role}, nil
}

// CreateOrder accepts a cart-shaped request, snapshots prices server-side and
// persists the order atomically.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input, err := buildCreateOrderInput(actor, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Create(ctx, actor, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func buildCreateOrderInput(actor internalorders.Actor, req createOrderRequest) (internalorders.CreateOrderInput, error) {
	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "restaurant_id must be a valid uuid")
	}
	orderType, err := enums.ParseOrderType(req.Type)
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order type")
	}
	paymentMethod, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	var deliveryMethod *enums.DeliveryMethod
	if req.DeliveryMethod != nil && strings.TrimSpace(*req.DeliveryMethod) != "" {
		parsed, err := enums.ParseDeliveryMethod(*req.DeliveryMethod)
		if err != nil {
			return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method")
		}
		deliveryMethod = &parsed
	}

	items := make([]internalorders.CreateOrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return internalorders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "product_id must be a valid uuid")
		}
		items = append(items, internalorders.CreateOrderItemInput{
			ProductID: productID,
			Qty:       item.Qty,
			Note:      item.Note,
		})
	}

	input := internalorders.CreateOrderInput{
		RestaurantID:    restaurantID,
		Type:            orderType,
		DeliveryMethod:  deliveryMethod,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryZone:    req.DeliveryZone,
		DeliveryLat:     req.DeliveryLat,
		DeliveryLng:     req.DeliveryLng,
		PaymentMethod:   paymentMethod,
		Note:            req.Note,
		Items:           items,
	}
	if actor.Role == enums.RoleCustomer {
		customerID := actor.ID
		input.CustomerID = &customerID
	}
	return input, nil
}

// GetOrder returns a single order with its line items.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Get(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// TrackOrder is the unauthenticated lookup by tracking number.
func TrackOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		trackingNumber := strings.TrimSpace(chi.URLParam(r, "trackingNumber"))
		if trackingNumber == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required"))
			return
		}

		order, err := svc.GetByTracking(ctx, trackingNumber)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// TransitionOrder applies one compare-and-swap status move on behalf of the
// authenticated actor.
func TransitionOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req transitionOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		expected, err := enums.ParseOrderStatus(req.ExpectedStatus)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expected_status"))
			return
		}
		next, err := enums.ParseOrderStatus(req.NextStatus)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid next_status"))
			return
		}

		order, err := svc.Transition(ctx, actor, orderID, expected, next)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListRestaurantOrders pages through a restaurant's orders, optionally
// filtered by status.
func ListRestaurantOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		restaurantID, err := validators.ParsePathUUID(r, "restaurantId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := validators.ParseOrderStatusQuery(r, "status")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filters := internalorders.RestaurantOrderFilters{}
		if status != "" {
			filters.Status = &status
		}

		list, err := svc.ListByRestaurant(ctx, restaurantID, params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListMyCourierOrders pages through the authenticated courier's orders.
func ListMyCourierOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListByCourier(ctx, actor.ID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: validators.ParseCursorQuery(r, "cursor"),
	}, nil
}
