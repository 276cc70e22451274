// Package chat orchestrates one user turn: validate, persist the user
// message, call the completion adapter, persist the assistant message,
// return the reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"minichat/internal/completion"
	"minichat/internal/models"
	"minichat/internal/store"
)

// ErrInvalidInput rejects a send before any side effect.
var ErrInvalidInput = errors.New("invalid input")

// Service wires the message store to the completion adapter.
type Service struct {
	store     *store.Store
	generator completion.Generator
}

// NewService builds the chat service.
func NewService(st *store.Store, gen completion.Generator) *Service {
	return &Service{store: st, generator: gen}
}

// SendInput is one send request from an authenticated caller.
type SendInput struct {
	Prompt   string
	ModelID  int64
	ModelTag string
}

// Send runs the pipeline for one turn. The two writes are not wrapped in a
// transaction: a failure after the user message is persisted leaves that
// row in place and surfaces the error unchanged.
func (s *Service) Send(ctx context.Context, userID int64, in SendInput) (string, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidInput)
	}
	if in.ModelID <= 0 {
		return "", fmt.Errorf("%w: model_id is required", ErrInvalidInput)
	}
	if in.ModelTag == "" {
		return "", fmt.Errorf("%w: model_tag is required", ErrInvalidInput)
	}
	mdl, err := s.store.GetModel(ctx, in.ModelID)
	if err != nil {
		return "", err
	}
	if mdl == nil {
		return "", fmt.Errorf("%w: unknown model %d", ErrInvalidInput, in.ModelID)
	}

	modelID := mdl.ID
	if _, err := s.store.AppendMessage(ctx, userID, &modelID, models.RoleUser, prompt); err != nil {
		return "", fmt.Errorf("save user message: %w", err)
	}

	reply, err := s.generator.Generate(ctx, completion.Request{
		Prompt:   prompt,
		ModelTag: in.ModelTag,
		Provider: mdl.Provider,
	})
	if err != nil {
		return "", err
	}

	if _, err := s.store.AppendMessage(ctx, userID, &modelID, models.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("save assistant message: %w", err)
	}
	return reply, nil
}

// History returns the caller's ordered messages with model tags resolved.
// Identity scoping is the auth boundary's job; the user id is trusted here.
func (s *Service) History(ctx context.Context, userID int64) ([]models.Message, error) {
	return s.store.ListMessages(ctx, userID)
}

// AvailableModels returns the selectable model catalog.
func (s *Service) AvailableModels(ctx context.Context) ([]models.Model, error) {
	return s.store.ListModels(ctx)
}
