package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/emersonbarrios/fooddash-backend/api/responses"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
	pkgredis "github.com/emersonbarrios/fooddash-backend/pkg/redis"
)

const idempotencyHeader = "Idempotency-Key"

type idempotencyRule struct {
	method  string
	pattern string
	ttl     time.Duration
}

// Money-moving routes replay their stored response instead of re-executing.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, pattern: "/api/v1/orders", ttl: 7 * 24 * time.Hour},
	{method: http.MethodPost, pattern: "/api/v1/orders/{id}/payment-intent", ttl: 7 * 24 * time.Hour},
	{method: http.MethodPost, pattern: "/api/v1/admin/commissions/payments", ttl: 7 * 24 * time.Hour},
	{method: http.MethodPost, pattern: "/api/v1/deliveries/{id}/claim", ttl: 24 * time.Hour},
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers"`
	RequestHash string            `json:"request_hash"`
}

type responseCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *responseCapture) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotency replays stored responses for repeated mutating requests that
// carry the same Idempotency-Key. A reused key with a different request body
// is rejected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			rule, ok := matchIdempotencyRule(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if key == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header is required"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "failed to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			requestHash := hashRequest(r.Method, r.URL.Path, body)

			storageKey := store.IdempotencyKey(buildScope(ctx, r), key)

			stored, err := store.Get(ctx, storageKey)
			switch {
			case err == nil:
				replayStored(ctx, w, logg, stored, requestHash)
				return
			case errors.Is(err, goredis.Nil):
				// first delivery, fall through
			default:
				if logg != nil {
					logg.Error(ctx, "idempotency store lookup failed", err)
				}
			}

			capture := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			if capture.status >= http.StatusInternalServerError {
				return
			}

			record := idempotencyRecord{
				Status:      capture.status,
				Body:        base64.StdEncoding.EncodeToString(capture.buf.Bytes()),
				Headers:     map[string]string{"Content-Type": capture.Header().Get("Content-Type")},
				RequestHash: requestHash,
			}
			encoded, err := json.Marshal(record)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "failed to encode idempotency record", err)
				}
				return
			}
			if _, err := store.SetNX(ctx, storageKey, string(encoded), rule.ttl); err != nil && logg != nil {
				logg.Error(ctx, "failed to persist idempotency record", err)
			}
		})
	}
}

func replayStored(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, stored, requestHash string) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt idempotency record"))
		return
	}

	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
		return
	}

	body, err := base64.StdEncoding.DecodeString(record.Body)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt idempotency record body"))
		return
	}

	for header, value := range record.Headers {
		if value != "" {
			w.Header().Set(header, value)
		}
	}
	w.WriteHeader(record.Status)
	_, _ = w.Write(body)
}

func matchIdempotencyRule(r *http.Request) (idempotencyRule, bool) {
	pattern := r.URL.Path
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil && routeCtx.RoutePattern() != "" {
		pattern = routeCtx.RoutePattern()
	}
	for _, rule := range idempotencyRules {
		if rule.method == r.Method && rule.pattern == pattern {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

// buildScope keys records per actor so two actors reusing the same key
// never collide.
func buildScope(ctx context.Context, r *http.Request) string {
	if actorID, ok := ActorIDFromContext(ctx); ok {
		return actorID.String()
	}
	return "anon:" + r.RemoteAddr
}

func hashRequest(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte("|"))
	sum.Write([]byte(path))
	sum.Write([]byte("|"))
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}
