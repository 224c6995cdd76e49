package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/Victorugws/swift/internal/model/conversation"
	"github.com/Victorugws/swift/internal/model/persona"
	"github.com/Victorugws/swift/internal/service/ambient"
)

var (
	// ErrEmptyCompletion means the model answered with no usable text.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrRateLimited means the completion provider throttled the request.
	ErrRateLimited = errors.New("completion provider rate limited")
)

// Service produces the assistant reply for a transcript.
type Service struct {
	persona persona.Persona
	chain   compose.Runnable[map[string]any, *schema.Message]
	logger  zerolog.Logger
}

// NewService compiles the prompt chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, p persona.Persona, logger zerolog.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		persona: p,
		chain:   runnable,
		logger:  logger.With().Str("component", "ai").Logger(),
	}, nil
}

// GenerateReply asks the model to answer transcript, given the caller's
// history and ambient context. The reply is returned exactly as produced.
func (s *Service) GenerateReply(ctx context.Context, env ambient.Context, history []conversation.Turn, transcript string) (string, error) {
	input := map[string]any{
		"system":  BuildSystemPrompt(s.persona, env),
		"history": buildHistoryMessages(history),
		"query":   transcript,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || response.Content == "" {
		return "", ErrEmptyCompletion
	}

	s.logger.Debug().
		Int("history", len(history)).
		Int("length", len(response.Content)).
		Msg("generated reply")
	return response.Content, nil
}

// The history is replayed verbatim and in order; the client owns it.
func buildHistoryMessages(turns []conversation.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case conversation.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case conversation.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
