package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

// trackingAlphabet avoids 0/O and 1/I so support staff can read numbers
// back over the phone.
const trackingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const trackingSuffixLen = 6

// NewTrackingNumber generates a human-facing tracking number, e.g.
// FD-20260829-K7QMHX. Uniqueness is enforced by the orders table; creation
// retries on collision.
func NewTrackingNumber(now time.Time) (string, error) {
	buf := make([]byte, trackingSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating tracking suffix: %w", err)
	}
	for i, b := range buf {
		buf[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return fmt.Sprintf("FD-%s-%s", now.UTC().Format("20060102"), string(buf)), nil
}
