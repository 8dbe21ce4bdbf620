package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/factory"
	"github.com/vibast-solutions/ms-go-entitlements/app/generation"
	"github.com/vibast-solutions/ms-go-entitlements/app/metrics"
	"github.com/vibast-solutions/ms-go-entitlements/config"
	"golang.org/x/sync/errgroup"
)

type BulkItem struct {
	Prompt string
	Image  *generation.Image
	Err    error
}

type BulkResult struct {
	Items     []BulkItem
	Succeeded int
	Failed    int
}

type GenerationService struct {
	provider        generation.Provider
	bulkConcurrency int
	bulkMaxPrompts  int
	sink            metrics.Sink
	logger          logrus.FieldLogger
}

func NewGenerationService(provider generation.Provider, cfg config.GenerationConfig, sink metrics.Sink) *GenerationService {
	if sink == nil {
		sink = metrics.Nop{}
	}
	concurrency := cfg.BulkConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &GenerationService{
		provider:        provider,
		bulkConcurrency: concurrency,
		bulkMaxPrompts:  cfg.BulkMaxPrompts,
		sink:            sink,
		logger:          factory.NewModuleLogger("generation-service"),
	}
}

func (s *GenerationService) Generate(ctx context.Context, prompt, size string) (*generation.Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}

	start := time.Now()
	img, err := s.provider.Generate(ctx, generation.Request{Prompt: prompt, Size: size})
	if err != nil {
		s.sink.ObserveGeneration(s.provider.Name(), "failure", time.Since(start))
		if errors.Is(err, generation.ErrEmptyPrompt) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	s.sink.ObserveGeneration(s.provider.Name(), "success", time.Since(start))
	return img, nil
}

// GenerateBulk runs every prompt independently. One failure never cancels the
// others; the result reports both counts.
func (s *GenerationService) GenerateBulk(ctx context.Context, prompts []string, size string) (*BulkResult, error) {
	if err := s.ValidateBulk(prompts); err != nil {
		return nil, err
	}

	items := make([]BulkItem, len(prompts))
	g := new(errgroup.Group)
	g.SetLimit(s.bulkConcurrency)
	for i, prompt := range prompts {
		i, prompt := i, prompt
		g.Go(func() error {
			img, err := s.Generate(ctx, prompt, size)
			items[i] = BulkItem{Prompt: prompt, Image: img, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkResult{Items: items}
	for _, item := range items {
		if item.Err != nil {
			result.Failed++
			s.logger.WithError(item.Err).Warn("bulk generation item failed")
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (s *GenerationService) ValidateBulk(prompts []string) error {
	if len(prompts) == 0 {
		return fmt.Errorf("%w: at least one prompt is required", ErrInvalidRequest)
	}
	if s.bulkMaxPrompts > 0 && len(prompts) > s.bulkMaxPrompts {
		return fmt.Errorf("%w: at most %d prompts per batch", ErrInvalidRequest, s.bulkMaxPrompts)
	}
	for _, prompt := range prompts {
		if strings.TrimSpace(prompt) == "" {
			return fmt.Errorf("%w: prompts must not be empty", ErrInvalidRequest)
		}
	}
	return nil
}
