package webhooks

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/emersonbarrios/fooddash-backend/api/responses"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/gateway"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	pkgredis "github.com/emersonbarrios/fooddash-backend/pkg/redis"
)

type notificationVerifier interface {
	VerifyNotification(params url.Values) (*gateway.Notification, error)
}

type paymentProcessor interface {
	HandleNotification(ctx context.Context, notification gateway.Notification) error
}

// Guard deduplicates webhook deliveries with a short-lived SETNX marker.
type Guard struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
}

func NewGuard(store pkgredis.IdempotencyStore, ttl time.Duration) *Guard {
	return &Guard{store: store, ttl: ttl}
}

// CheckAndMark reports whether the event was seen before, marking it seen
// atomically otherwise.
func (g *Guard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key := g.store.IdempotencyKey("gateway-webhook", eventID)
	stored, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !stored, nil
}

// Release drops the marker so a failed delivery can be retried.
func (g *Guard) Release(ctx context.Context, eventID string) error {
	key := g.store.IdempotencyKey("gateway-webhook", eventID)
	return g.store.Del(ctx, key)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// PaymentNotification receives asynchronous gateway callbacks. Signature
// failures are rejected; anything past the signature check is ACKed so the
// gateway stops retrying, with internal failures absorbed and logged.
func PaymentNotification(verifier notificationVerifier, svc paymentProcessor, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if verifier == nil || svc == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		if err := r.ParseForm(); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed notification"))
			return
		}

		notification, err := verifier.VerifyNotification(r.Form)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logCtx := logg.WithFields(ctx, map[string]any{
			"external_payment_id": notification.ExternalPaymentID,
			"order_ref":           notification.OrderReference,
			"gateway_status":      string(notification.Status),
		})

		eventID := notification.ExternalPaymentID + ":" + string(notification.Status)
		alreadyProcessed, err := guard.CheckAndMark(logCtx, eventID)
		if err != nil {
			// Guard failure degrades to at-least-once; the processor is
			// idempotent so duplicates are safe.
			logg.Error(logCtx, "webhook dedupe check failed", err)
		}
		if alreadyProcessed {
			logg.Info(logCtx, "duplicate gateway notification ignored")
			responses.WriteSuccess(w, map[string]string{"status": "ok"})
			return
		}

		if err := svc.HandleNotification(logCtx, *notification); err != nil {
			if releaseErr := guard.Release(logCtx, eventID); releaseErr != nil {
				logg.Error(logCtx, "failed to release webhook dedupe marker", releaseErr)
			}
			logg.Error(logCtx, "gateway notification processing failed", err)
			responses.WriteSuccess(w, map[string]string{"status": "ok"})
			return
		}

		logg.Info(logCtx, "gateway notification processed")
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
