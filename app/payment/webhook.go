package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const SignatureHeader = "x-paystack-signature"

const (
	EventSubscriptionCreate  = "subscription.create"
	EventSubscriptionUpdate  = "subscription.update"
	EventSubscriptionDisable = "subscription.disable"
	EventChargeSuccess       = "charge.success"
	EventChargeFailed        = "charge.failed"
)

// WebhookEvent is a decoded provider notification. Every field except Event may be empty.
type WebhookEvent struct {
	Event            string
	Reference        string
	Status           string
	Amount           int64
	Currency         string
	CustomerEmail    string
	SubscriptionCode string
	PlanCode         string
	GatewayResponse  string
	NextPaymentDate  *time.Time
	Metadata         map[string]string
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference        string          `json:"reference"`
		Status           string          `json:"status"`
		Amount           int64           `json:"amount"`
		Currency         string          `json:"currency"`
		GatewayResponse  string          `json:"gateway_response"`
		SubscriptionCode string          `json:"subscription_code"`
		NextPaymentDate  string          `json:"next_payment_date"`
		Metadata         json.RawMessage `json:"metadata"`
		Customer         struct {
			Email string `json:"email"`
		} `json:"customer"`
		Plan struct {
			PlanCode string `json:"plan_code"`
		} `json:"plan"`
	} `json:"data"`
}

// ParseWebhook decodes a webhook body. Only a missing event type is an error.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	event := strings.TrimSpace(payload.Event)
	if event == "" {
		return nil, fmt.Errorf("%w: event is required", ErrInvalidWebhook)
	}

	return &WebhookEvent{
		Event:            event,
		Reference:        strings.TrimSpace(payload.Data.Reference),
		Status:           strings.ToLower(strings.TrimSpace(payload.Data.Status)),
		Amount:           payload.Data.Amount,
		Currency:         payload.Data.Currency,
		CustomerEmail:    payload.Data.Customer.Email,
		SubscriptionCode: payload.Data.SubscriptionCode,
		PlanCode:         payload.Data.Plan.PlanCode,
		GatewayResponse:  payload.Data.GatewayResponse,
		NextPaymentDate:  parseTime(payload.Data.NextPaymentDate),
		Metadata:         parseMetadata(payload.Data.Metadata),
	}, nil
}

// VerifySignature checks the hex HMAC-SHA512 of the raw body against the signature header.
func VerifySignature(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	key := strings.TrimSpace(secret)
	if sig == "" || key == "" {
		return false
	}

	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, []byte(key))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded)
}

func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
