package llmservice

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"paper-rag/internal/config"
	"paper-rag/internal/models"
)

const service = "completion"

var thinkRe = regexp.MustCompile(models.ThinkTag)

// Model is the part of llms.Model the assistant needs
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// NewChatModel connects to an OpenAI-compatible chat completion endpoint (Groq by default)
func NewChatModel(llmConfig *config.LLMConfig) (*openai.LLM, error) {
	log.Debug().Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Creating chat model")
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, models.NewServiceError(service, "init", models.ErrInvalidInput, err)
	}
	return llm, nil
}

// GenerateContent sends prompt as the only user message and returns the text of
// the single requested completion, without any <think> block.
func GenerateContent(ctx context.Context, llm Model, prompt string, temperature float64) (string, error) {
	msgContent := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	res, err := llm.GenerateContent(ctx, msgContent,
		llms.WithTemperature(temperature),
		llms.WithCandidateCount(1),
	)
	if err != nil {
		return "", models.Unavailable(service, "generate", err)
	}
	if res == nil || len(res.Choices) == 0 || res.Choices[0] == nil {
		return "", models.NewServiceError(service, "generate", models.ErrInvalidInput,
			fmt.Errorf("completion returned no choices"))
	}

	if info := res.Choices[0].GenerationInfo; info != nil {
		log.Debug().Interface("usage", info).Msg("Completion finished")
	}
	return strings.TrimSpace(thinkRe.ReplaceAllString(res.Choices[0].Content, "")), nil
}
