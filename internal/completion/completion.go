// Package completion wraps the external text-completion backends behind a
// single Generate call. When a backend has no credential configured the
// adapter degrades to a deterministic echo stub instead of failing.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minichat/internal/config"
)

// ErrUnavailable marks any transport or provider failure. Callers get this
// one category; there is no retry and no partial result.
var ErrUnavailable = errors.New("completion provider unavailable")

// noResponseFallback is returned when the provider answers with empty content.
const noResponseFallback = "No response from AI."

// DefaultEchoDelay simulates provider latency in echo mode.
const DefaultEchoDelay = time.Second

// Request describes one single-turn completion. No prior turns are sent.
type Request struct {
	Prompt   string
	ModelTag string
	Provider string
}

// Generator is the adapter contract the send pipeline depends on.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Service routes requests to the configured backend for the model tag.
type Service struct {
	cfg       *config.Config
	echoDelay time.Duration
}

// NewService builds the adapter from provider configuration.
func NewService(cfg *config.Config) *Service {
	delay := DefaultEchoDelay
	if cfg != nil && cfg.BasicConfig.EchoDelayMS > 0 {
		delay = time.Duration(cfg.BasicConfig.EchoDelayMS) * time.Millisecond
	}
	return &Service{cfg: cfg, echoDelay: delay}
}

// Generate produces the assistant reply for one prompt. Echo mode applies
// when the tag or provider designates the stub, or when the resolved
// provider has no API key configured.
func (s *Service) Generate(ctx context.Context, req Request) (string, error) {
	if req.Prompt == "" {
		return "", errors.New("prompt cannot be empty")
	}

	if req.Provider == "echo" || req.ModelTag == "echo" {
		return s.echo(ctx, req)
	}
	provCfg, ok := s.providerConfig(req.Provider)
	if !ok || provCfg.APIKey == "" {
		return s.echo(ctx, req)
	}

	reply, err := s.generateReal(ctx, req, provCfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if reply == "" {
		return noResponseFallback, nil
	}
	return reply, nil
}

func (s *Service) providerConfig(provider string) (config.ProviderConfig, bool) {
	if s.cfg == nil {
		return config.ProviderConfig{}, false
	}
	provCfg, ok := s.cfg.Providers[provider]
	return provCfg, ok
}

// echo waits the simulated delay then returns a deterministic string
// embedding the prompt and model tag.
func (s *Service) echo(ctx context.Context, req Request) (string, error) {
	select {
	case <-time.After(s.echoDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fmt.Sprintf("You said: %q (using model: %s)", req.Prompt, req.ModelTag), nil
}
