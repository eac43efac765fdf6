package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	internalorders "github.com/emersonbarrios/fooddash-backend/internal/orders"
	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/pagination"
)

type stubDeliveriesService struct {
	claimFn    func(ctx context.Context, courierID, orderID uuid.UUID) (*models.Order, error)
	releaseFn  func(ctx context.Context, courierID, orderID uuid.UUID) error
	locationFn func(ctx context.Context, courierID uuid.UUID, lat, lng float64)
}

func (s stubDeliveriesService) Claim(ctx context.Context, courierID, orderID uuid.UUID) (*models.Order, error) {
	if s.claimFn != nil {
		return s.claimFn(ctx, courierID, orderID)
	}
	return &models.Order{}, nil
}

func (s stubDeliveriesService) Release(ctx context.Context, courierID, orderID uuid.UUID) error {
	if s.releaseFn != nil {
		return s.releaseFn(ctx, courierID, orderID)
	}
	return nil
}

func (s stubDeliveriesService) MarkPickedUp(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (s stubDeliveriesService) MarkDelivered(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (s stubDeliveriesService) UpdateLocation(ctx context.Context, courierID uuid.UUID, lat, lng float64) {
	if s.locationFn != nil {
		s.locationFn(ctx, courierID, lat, lng)
	}
}

func (s stubDeliveriesService) ListAvailable(context.Context, pagination.Params) (*internalorders.OrderList, error) {
	return &internalorders.OrderList{}, nil
}

func TestClaimDeliverySurfacesRetryableConflict(t *testing.T) {
	courierID := uuid.New()
	orderID := uuid.New()

	svc := stubDeliveriesService{
		claimFn: func(_ context.Context, gotCourier, gotOrder uuid.UUID) (*models.Order, error) {
			if gotCourier != courierID || gotOrder != orderID {
				t.Fatalf("unexpected claim args %s %s", gotCourier, gotOrder)
			}
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "order already claimed")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deliveries/"+orderID.String()+"/claim", nil)
	req = requestWithActor(req, courierID, enums.RoleCourier)
	req = requestWithURLParam(req, "id", orderID.String())
	resp := httptest.NewRecorder()
	ClaimDelivery(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeAlreadyClaimed) {
		t.Fatalf("expected ALREADY_CLAIMED got %s", payload.Error.Code)
	}
}

func TestUpdateCourierLocationAlwaysAccepts(t *testing.T) {
	courierID := uuid.New()
	var gotLat, gotLng float64
	svc := stubDeliveriesService{
		locationFn: func(_ context.Context, _ uuid.UUID, lat, lng float64) {
			gotLat, gotLng = lat, lng
		},
	}

	body := `{"lat":10.762622,"lng":106.660172}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/couriers/me/location", strings.NewReader(body))
	req = requestWithActor(req, courierID, enums.RoleCourier)
	resp := httptest.NewRecorder()
	UpdateCourierLocation(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", resp.Code)
	}
	if gotLat != 10.762622 || gotLng != 106.660172 {
		t.Fatalf("unexpected sample %f %f", gotLat, gotLng)
	}
}

func TestUpdateCourierLocationRejectsOutOfRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/couriers/me/location", strings.NewReader(`{"lat":123.0,"lng":0.5}`))
	req = requestWithActor(req, uuid.New(), enums.RoleCourier)
	resp := httptest.NewRecorder()
	UpdateCourierLocation(stubDeliveriesService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
