package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/emersonbarrios/fooddash-backend/pkg/config"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
)

// Client builds signed redirect URLs for hosted checkout and verifies the
// HMAC on asynchronous gateway notifications. All amounts are integer cents.
type Client struct {
	cfg config.GatewayConfig
	now func() time.Time
}

// Intent is the hosted-checkout handle handed back to API callers.
type Intent struct {
	IntentID    string
	RedirectURL string
	ExpiresAt   time.Time
}

// Notification is the parsed, signature-verified webhook body.
type Notification struct {
	ExternalPaymentID string
	IntentID          string
	OrderReference    string
	Status            enums.GatewayStatus
	AmountCents       int64
	FailureReason     string
}

func NewClient(cfg config.GatewayConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base url is required")
	}
	if cfg.MerchantCode == "" {
		return nil, errors.New("gateway merchant code is required")
	}
	if cfg.SigningSecret == "" {
		return nil, errors.New("gateway signing secret is required")
	}
	return &Client{cfg: cfg, now: time.Now}, nil
}

// CreateIntent builds a signed hosted-checkout URL for the order. The order
// reference rides in the query so the notification can be matched back.
func (c *Client) CreateIntent(orderReference string, amountCents int64) (*Intent, error) {
	if orderReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	intentID := uuid.NewString()
	now := c.now().UTC()
	expiresAt := now.Add(c.cfg.IntentExpiry)

	params := url.Values{}
	params.Set("merchant_code", c.cfg.MerchantCode)
	params.Set("intent_id", intentID)
	params.Set("order_ref", orderReference)
	params.Set("amount_cents", strconv.FormatInt(amountCents, 10))
	params.Set("created_at", now.Format("20060102150405"))
	params.Set("expires_at", expiresAt.Format("20060102150405"))
	params.Set("callback_url", c.cfg.CallbackURL)

	query := params.Encode()
	signature := c.sign(query)

	return &Intent{
		IntentID:    intentID,
		RedirectURL: c.cfg.BaseURL + "?" + query + "&signature=" + signature,
		ExpiresAt:   expiresAt,
	}, nil
}

// VerifyNotification checks the HMAC over the sorted query parameters and
// decodes the payload. An invalid signature returns CodeUnauthorized.
func (c *Client) VerifyNotification(params url.Values) (*Notification, error) {
	provided := params.Get("signature")
	if provided == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "notification signature missing")
	}

	clone := url.Values{}
	for key, values := range params {
		if key == "signature" {
			continue
		}
		for _, v := range values {
			clone.Add(key, v)
		}
	}

	expected := c.sign(clone.Encode())
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "notification signature mismatch")
	}

	// Unknown status values pass through; ToPaymentStatus treats them as pending.
	status := enums.GatewayStatus(params.Get("status"))

	externalID := params.Get("payment_id")
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_id missing")
	}

	amountCents, err := strconv.ParseInt(params.Get("amount_cents"), 10, 64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount_cents")
	}

	return &Notification{
		ExternalPaymentID: externalID,
		IntentID:          params.Get("intent_id"),
		OrderReference:    params.Get("order_ref"),
		Status:            status,
		AmountCents:       amountCents,
		FailureReason:     params.Get("failure_reason"),
	}, nil
}

func (c *Client) sign(data string) string {
	h := hmac.New(sha512.New, []byte(c.cfg.SigningSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
