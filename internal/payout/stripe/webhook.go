package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/salasbeats/marketplace/internal/payout/domain"
)

// signatureTolerance rejects replayed webhook deliveries older than this.
const signatureTolerance = 5 * time.Minute

type eventEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Account string `json:"account"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type payoutObject struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	ArrivalDate    int64  `json:"arrival_date"`
	FailureMessage string `json:"failure_message"`
}

type accountObject struct {
	ID string `json:"id"`
}

type paymentIntentObject struct {
	ID       string `json:"id"`
	Metadata struct {
		BookingID string `json:"bookingId"`
	} `json:"metadata"`
	LastPaymentError struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// VerifyAndParse checks the signature header against the webhook secret and
// normalizes the payload into a domain event. The header carries a unix
// timestamp and one or more HMAC-SHA256 signatures over "<t>.<payload>".
func (c *Client) VerifyAndParse(payload []byte, signatureHeader string) (*domain.Event, error) {
	if err := c.verifySignature(payload, signatureHeader, time.Now()); err != nil {
		return nil, err
	}
	return parseEvent(payload)
}

func (c *Client) verifySignature(payload []byte, header string, now time.Time) error {
	var timestamp int64
	var signatures [][]byte

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return domain.ErrBadSignature
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(kv[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return domain.ErrBadSignature
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return domain.ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return domain.ErrBadSignature
}

func parseEvent(payload []byte) (*domain.Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	event := &domain.Event{
		ID:         envelope.ID,
		Type:       domain.EventType(envelope.Type),
		AccountRef: envelope.Account,
	}

	switch event.Type {
	case domain.EventPayoutCreated, domain.EventPayoutUpdated, domain.EventPayoutPaid, domain.EventPayoutFailed:
		var object payoutObject
		if err := json.Unmarshal(envelope.Data.Object, &object); err != nil {
			return nil, fmt.Errorf("malformed payout object: %w", err)
		}
		event.PayoutID = object.ID
		event.Status = object.Status
		event.FailureReason = object.FailureMessage
		event.Amount = float64(object.Amount) / 100
		event.Currency = object.Currency
		if object.ArrivalDate > 0 {
			arrival := time.Unix(object.ArrivalDate, 0).UTC()
			event.ArrivalDate = &arrival
		}

	case domain.EventAccountUpdated:
		var object accountObject
		if err := json.Unmarshal(envelope.Data.Object, &object); err != nil {
			return nil, fmt.Errorf("malformed account object: %w", err)
		}
		if object.ID != "" {
			event.AccountRef = object.ID
		}

	case domain.EventPaymentSucceeded, domain.EventPaymentFailed:
		var object paymentIntentObject
		if err := json.Unmarshal(envelope.Data.Object, &object); err != nil {
			return nil, fmt.Errorf("malformed payment intent object: %w", err)
		}
		event.PaymentIntentID = object.ID
		event.BookingID = object.Metadata.BookingID
		event.FailureReason = object.LastPaymentError.Message
	}

	return event, nil
}
