package completion

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"minichat/internal/config"
)

// generateReal forwards the prompt to the external provider as a single-turn
// exchange and returns the first completion's text.
func (s *Service) generateReal(ctx context.Context, req Request, provCfg config.ProviderConfig) (string, error) {
	chatModel, err := s.buildChatModel(ctx, req, provCfg)
	if err != nil {
		return "", err
	}

	msg, err := chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage(req.Prompt),
	})
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}

func (s *Service) buildChatModel(ctx context.Context, req Request, provCfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
	modelName := req.ModelTag
	if modelName == "" {
		modelName = provCfg.Model
	}

	switch req.Provider {
	case "openai":
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   modelName,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", req.Provider)
	}
}
