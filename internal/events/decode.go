package events

import (
	"encoding/json"
	"fmt"
)

// Decoded is the tagged union produced by Decode. Exactly one payload
// pointer matching Type is non-nil; unknown event kinds are reported as
// TypeUnknown so dispatchers can log and drop instead of crashing.
type Decoded struct {
	Type             string
	OrderCreated     *OrderCreated
	PaymentCompleted *PaymentCompleted
	PaymentFailed    *PaymentFailed
}

// snsNotification is the outer pub/sub envelope SQS delivers when the queue
// subscription does not have raw message delivery enabled.
type snsNotification struct {
	Type              string                         `json:"Type"`
	Message           string                         `json:"Message"`
	Subject           string                         `json:"Subject"`
	MessageAttributes map[string]snsMessageAttribute `json:"MessageAttributes"`
}

type snsMessageAttribute struct {
	Type  string `json:"Type"`
	Value string `json:"Value"`
}

// probe captures just enough of a payload to detect its type.
type probe struct {
	EventType string  `json:"event_type"`
	Reason    string  `json:"reason"`
	PaymentID string  `json:"payment_id"`
	OrderID   string  `json:"order_id"`
	UserID    string  `json:"user_id"`
	Amount    float64 `json:"amount"`
}

// AttrEventType is the message attribute key carrying the event type.
const AttrEventType = "eventType"

// Decode parses a raw queue message body into a typed event.
//
// A body containing a "Message" string field is treated as an SNS
// notification: the inner payload is extracted and re-decoded, and an
// eventType message attribute on the notification takes part in type
// detection. Type detection order: message attribute, envelope
// event_type field, then payload-shape heuristics (a "reason" field
// implies PaymentFailed, a "payment_id" implies PaymentCompleted).
func Decode(body []byte, attrs map[string]string) (Decoded, error) {
	var note snsNotification
	if err := json.Unmarshal(body, &note); err == nil && note.Message != "" {
		inner := map[string]string{}
		for k, v := range attrs {
			inner[k] = v
		}
		if a, ok := note.MessageAttributes[AttrEventType]; ok && a.Value != "" {
			inner[AttrEventType] = a.Value
		}
		return Decode([]byte(note.Message), inner)
	}

	var p probe
	if err := json.Unmarshal(body, &p); err != nil {
		return Decoded{Type: TypeUnknown}, fmt.Errorf("decode event: %w", err)
	}

	eventType := attrs[AttrEventType]
	if eventType == "" {
		eventType = p.EventType
	}
	if eventType == "" {
		// Raw-delivery messages from older publishers carry no discriminator.
		switch {
		case p.Reason != "":
			eventType = TypePaymentFailed
		case p.PaymentID != "":
			eventType = TypePaymentCompleted
		case p.OrderID != "" && p.UserID != "":
			eventType = TypeOrderCreated
		}
	}

	switch eventType {
	case TypeOrderCreated:
		var ev OrderCreated
		if err := json.Unmarshal(body, &ev); err != nil {
			return Decoded{Type: TypeUnknown}, fmt.Errorf("decode OrderCreated: %w", err)
		}
		return Decoded{Type: TypeOrderCreated, OrderCreated: &ev}, nil
	case TypePaymentCompleted:
		var ev PaymentCompleted
		if err := json.Unmarshal(body, &ev); err != nil {
			return Decoded{Type: TypeUnknown}, fmt.Errorf("decode PaymentCompleted: %w", err)
		}
		return Decoded{Type: TypePaymentCompleted, PaymentCompleted: &ev}, nil
	case TypePaymentFailed:
		var ev PaymentFailed
		if err := json.Unmarshal(body, &ev); err != nil {
			return Decoded{Type: TypeUnknown}, fmt.Errorf("decode PaymentFailed: %w", err)
		}
		return Decoded{Type: TypePaymentFailed, PaymentFailed: &ev}, nil
	}
	return Decoded{Type: TypeUnknown}, nil
}
