package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salasbeats/marketplace/internal/config"
	"github.com/salasbeats/marketplace/internal/payout/domain"
)

func testClient() *Client {
	return NewClient(config.Config{
		PaymentSecretKey:     "sk_test_123",
		PaymentWebhookSecret: "whsec_test",
		PaymentAPIBaseURL:    "https://api.stripe.com",
	}, zap.NewNop())
}

func sign(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyAndParsePayoutEvent(t *testing.T) {
	c := testClient()
	payload := []byte(`{
		"id": "evt_1",
		"type": "payout.paid",
		"account": "acct_1",
		"data": {"object": {
			"id": "po_1",
			"status": "paid",
			"amount": 40000,
			"currency": "usd",
			"arrival_date": 1767225600
		}}
	}`)

	header := sign("whsec_test", time.Now().Unix(), payload)
	event, err := c.VerifyAndParse(payload, header)
	require.NoError(t, err)

	assert.Equal(t, domain.EventPayoutPaid, event.Type)
	assert.Equal(t, "po_1", event.PayoutID)
	assert.Equal(t, "acct_1", event.AccountRef)
	assert.InDelta(t, 400, event.Amount, 1e-9)
	require.NotNil(t, event.ArrivalDate)
}

func TestVerifyAndParsePaymentEvent(t *testing.T) {
	c := testClient()
	payload := []byte(`{
		"id": "evt_2",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_1",
			"metadata": {"bookingId": "42"}
		}}
	}`)

	header := sign("whsec_test", time.Now().Unix(), payload)
	event, err := c.VerifyAndParse(payload, header)
	require.NoError(t, err)

	assert.Equal(t, domain.EventPaymentSucceeded, event.Type)
	assert.Equal(t, "pi_1", event.PaymentIntentID)
	assert.Equal(t, "42", event.BookingID)
}

func TestVerifyRejectsBadSignatures(t *testing.T) {
	c := testClient()
	payload := []byte(`{"id": "evt_3", "type": "payout.paid", "data": {"object": {"id": "po_1"}}}`)

	_, err := c.VerifyAndParse(payload, sign("wrong_secret", time.Now().Unix(), payload))
	assert.ErrorIs(t, err, domain.ErrBadSignature)

	_, err = c.VerifyAndParse(payload, "garbage")
	assert.ErrorIs(t, err, domain.ErrBadSignature)

	// Stale deliveries are replay attempts.
	stale := time.Now().Add(-time.Hour).Unix()
	_, err = c.VerifyAndParse(payload, sign("whsec_test", stale, payload))
	assert.ErrorIs(t, err, domain.ErrBadSignature)

	// Tampered payloads fail even with a fresh timestamp.
	header := sign("whsec_test", time.Now().Unix(), payload)
	_, err = c.VerifyAndParse([]byte(`{"id": "evt_4"}`), header)
	assert.ErrorIs(t, err, domain.ErrBadSignature)
}
