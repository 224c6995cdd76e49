package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/Victorugws/swift/internal/config"
)

// NewChatModel builds the chat model selected by cfg.Provider.
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%s credentials or model missing", cfg.Provider)
	}

	var temperature *float32
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		temperature = &val
	}

	var topP *float32
	if cfg.TopP != nil {
		val := float32(*cfg.TopP)
		topP = &val
	}

	switch cfg.Provider {
	case "ark":
		chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     cfg.BaseURL,
			Region:      cfg.Region,
			APIKey:      cfg.APIKey,
			AccessKey:   cfg.AccessKey,
			SecretKey:   cfg.SecretKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
			TopP:        topP,
		})
		if err != nil {
			return nil, err
		}
		return chatModel, nil
	default:
		chatModel, err := NewOpenAIChatModel(OpenAIChatModelConfig{
			APIKey:      cfg.GroqAPIKey,
			BaseURL:     cfg.GroqBaseURL,
			Model:       cfg.GroqModel,
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return chatModel, nil
	}
}

const groqLlama3Fact = "Your large language model is Llama 3, created by Meta, the 8 billion parameter version. It is hosted on Groq, an AI infrastructure company that builds fast inference technology."

// ModelFact describes the configured chat model for the system prompt.
func ModelFact(cfg config.AIConfig) string {
	switch cfg.Provider {
	case "ark":
		return fmt.Sprintf("Your large language model is %s, served by Volcengine Ark.", cfg.Model)
	default:
		if cfg.GroqModel == "llama3-8b-8192" {
			return groqLlama3Fact
		}
		return fmt.Sprintf("Your large language model is %s. It is hosted on Groq, an AI infrastructure company that builds fast inference technology.", cfg.GroqModel)
	}
}
