package generation

import (
	"context"
	"errors"
)

var (
	ErrProviderNotConfigured = errors.New("image provider is not configured")
	ErrEmptyPrompt           = errors.New("prompt is required")
	ErrProvider              = errors.New("image provider error")
)

type Request struct {
	Prompt string
	Size   string
}

type Image struct {
	URL      string
	Provider string
}

// Provider generates one image per call. Each call is a billable action.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Image, error)
}
