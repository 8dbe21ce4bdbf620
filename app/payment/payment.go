package payment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrGateway         = errors.New("payment gateway error")
	ErrNotConfigured   = errors.New("payment gateway is not configured")
	ErrInvalidWebhook  = errors.New("invalid webhook payload")
	ErrInvalidArgument = errors.New("invalid payment argument")
)

// Metadata keys attached to every checkout and read back on verify and webhooks.
const (
	MetadataUserID   = "user_id"
	MetadataPlan     = "plan"
	MetadataIsAnnual = "is_annual"
)

type InitializeRequest struct {
	Email       string
	Amount      int64
	Currency    string
	Reference   string
	CallbackURL string
	PlanCode    string
	Metadata    map[string]string
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// Transaction is the provider's view of a charge.
type Transaction struct {
	Reference     string
	Status        string
	Amount        int64
	Currency      string
	CustomerEmail string
	PaidAt        *time.Time
	Metadata      map[string]string
}

func (t *Transaction) Succeeded() bool {
	return t != nil && t.Status == StatusSuccess
}

type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*Transaction, error)
}
