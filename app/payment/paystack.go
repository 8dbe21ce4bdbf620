package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPaystackBaseURL = "https://api.paystack.co"
	StatusSuccess          = "success"
)

type PaystackClient struct {
	SecretKey  string
	BaseURL    string
	HTTPClient *http.Client
}

func NewPaystackClient(secretKey, baseURL string, timeout time.Duration) *PaystackClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultPaystackBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaystackClient{
		SecretKey:  secretKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitializeBody struct {
	Email       string            `json:"email"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Plan        string            `json:"plan,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paystackInitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackTransactionData struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    string          `json:"paid_at"`
	Metadata  json.RawMessage `json:"metadata"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

func (c *PaystackClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(req.Email) == "" || req.Amount <= 0 {
		return nil, fmt.Errorf("%w: email and positive amount are required", ErrInvalidArgument)
	}

	body := paystackInitializeBody{
		Email:       req.Email,
		Amount:      strconv.FormatInt(req.Amount, 10),
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Plan:        req.PlanCode,
		Metadata:    req.Metadata,
	}

	var data paystackInitializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initialize returned empty authorization_url", ErrGateway)
	}

	reference := data.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        reference,
	}, nil
}

func (c *PaystackClient) Verify(ctx context.Context, reference string) (*Transaction, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, ErrNotConfigured
	}
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrInvalidArgument)
	}

	var data paystackTransactionData
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(ref), nil, &data); err != nil {
		return nil, err
	}

	return &Transaction{
		Reference:     data.Reference,
		Status:        strings.ToLower(strings.TrimSpace(data.Status)),
		Amount:        data.Amount,
		Currency:      data.Currency,
		CustomerEmail: data.Customer.Email,
		PaidAt:        parseTime(data.PaidAt),
		Metadata:      parseMetadata(data.Metadata),
	}, nil
}

func (c *PaystackClient) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s status=%d body=%s", ErrGateway, method, path, resp.StatusCode, string(body))
	}

	var envelope paystackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	if !envelope.Status {
		return fmt.Errorf("%w: %s", ErrGateway, envelope.Message)
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrGateway, err)
	}
	return nil
}

// parseMetadata flattens provider metadata into strings. The provider echoes
// metadata either as an object or as a JSON-encoded string.
func parseMetadata(raw json.RawMessage) map[string]string {
	out := map[string]string{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return out
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return out
		}
		raw = []byte(encoded)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out
	}
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			out[key] = v
		case bool:
			out[key] = strconv.FormatBool(v)
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return out
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
