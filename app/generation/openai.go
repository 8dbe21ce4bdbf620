package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OpenAIProvider struct {
	BaseURL     string
	APIKey      string
	Model       string
	DefaultSize string
	HTTPClient  *http.Client
	Store       Store
}

func NewOpenAIProvider(baseURL, apiKey, model, defaultSize string, timeout time.Duration, store Store) *OpenAIProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIProvider{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		Model:       model,
		DefaultSize: defaultSize,
		HTTPClient:  &http.Client{Timeout: timeout},
		Store:       store,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

type openAIImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
	N      int    `json:"n"`
}

type openAIImageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Image, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, ErrProviderNotConfigured
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = p.DefaultSize
	}

	raw, err := json.Marshal(openAIImageRequest{Model: p.Model, Prompt: prompt, Size: size, N: 1})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/images/generations", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	var out openAIImageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: status=%d decode: %v", ErrProvider, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("%w: status=%d %s", ErrProvider, resp.StatusCode, msg)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrProvider)
	}

	item := out.Data[0]
	if item.URL != "" {
		return &Image{URL: item.URL, Provider: p.Name()}, nil
	}
	if item.B64JSON == "" {
		return nil, fmt.Errorf("%w: response carries no image", ErrProvider)
	}

	url, err := p.persist(ctx, item.B64JSON)
	if err != nil {
		return nil, err
	}
	return &Image{URL: url, Provider: p.Name()}, nil
}

// persist uploads base64 image data when a store is configured and falls back to a data URL.
func (p *OpenAIProvider) persist(ctx context.Context, b64 string) (string, error) {
	if p.Store == nil {
		return "data:image/png;base64," + b64, nil
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("%w: decode image: %v", ErrProvider, err)
	}
	key := fmt.Sprintf("generated/%s/%s.png", time.Now().UTC().Format("2006/01/02"), uuid.NewString())
	return p.Store.Put(ctx, key, data, "image/png")
}
