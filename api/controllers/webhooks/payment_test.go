package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/gateway"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
)

type stubVerifier struct {
	notification *gateway.Notification
	err          error
}

func (s *stubVerifier) VerifyNotification(url.Values) (*gateway.Notification, error) {
	return s.notification, s.err
}

type stubProcessor struct {
	calls int
	err   error
}

func (s *stubProcessor) HandleNotification(context.Context, gateway.Notification) error {
	s.calls++
	return s.err
}

type stubGuard struct {
	seen     map[string]bool
	released []string
}

func newStubGuard() *stubGuard {
	return &stubGuard{seen: map[string]bool{}}
}

func (s *stubGuard) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	if s.seen[eventID] {
		return true, nil
	}
	s.seen[eventID] = true
	return false, nil
}

func (s *stubGuard) Release(_ context.Context, eventID string) error {
	s.released = append(s.released, eventID)
	delete(s.seen, eventID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "webhooks-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func approvedNotification() *gateway.Notification {
	return &gateway.Notification{
		ExternalPaymentID: "pay-9",
		IntentID:          "int-1",
		OrderReference:    "5b2c3f47-9d9e-4a05-9d7e-111111111111",
		Status:            enums.GatewayStatusApproved,
		AmountCents:       4200,
	}
}

func postNotification(handler http.HandlerFunc) *httptest.ResponseRecorder {
	body := strings.NewReader("payment_id=pay-9&status=approved")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestPaymentNotificationRejectsBadSignature(t *testing.T) {
	verifier := &stubVerifier{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "notification signature mismatch")}
	processor := &stubProcessor{}
	handler := PaymentNotification(verifier, processor, newStubGuard(), testLogger())

	resp := postNotification(handler)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if processor.calls != 0 {
		t.Fatalf("processor should not run on signature failure")
	}
}

func TestPaymentNotificationProcessesOnce(t *testing.T) {
	verifier := &stubVerifier{notification: approvedNotification()}
	processor := &stubProcessor{}
	guard := newStubGuard()
	handler := PaymentNotification(verifier, processor, guard, testLogger())

	first := postNotification(handler)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", first.Code)
	}
	second := postNotification(handler)
	if second.Code != http.StatusOK {
		t.Fatalf("expected duplicate to still ack with 200, got %d", second.Code)
	}
	if processor.calls != 1 {
		t.Fatalf("processor ran %d times, expected 1", processor.calls)
	}
}

func TestPaymentNotificationAcksAndReleasesOnFailure(t *testing.T) {
	verifier := &stubVerifier{notification: approvedNotification()}
	processor := &stubProcessor{err: errors.New("db offline")}
	guard := newStubGuard()
	handler := PaymentNotification(verifier, processor, guard, testLogger())

	resp := postNotification(handler)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected processing failure to be absorbed with 200, got %d", resp.Code)
	}
	if len(guard.released) != 1 {
		t.Fatalf("expected dedupe marker released for retry, got %v", guard.released)
	}

	processor.err = nil
	retry := postNotification(handler)
	if retry.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", retry.Code)
	}
	if processor.calls != 2 {
		t.Fatalf("expected retry to reach the processor, got %d calls", processor.calls)
	}
}
