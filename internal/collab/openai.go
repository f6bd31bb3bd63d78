package collab

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAICollaborator is the Collaborator backed by OpenAI chat completions.
type OpenAICollaborator struct {
	client openai.Client
	config Config
}

// NewOpenAICollaborator builds the OpenAI-backed collaborator. The key is
// taken from the config when set, otherwise from OPENAI_API_KEY; a model
// name is required since continuity prompts are tuned per model family.
func NewOpenAICollaborator(config Config) (*OpenAICollaborator, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no API key in config or OPENAI_API_KEY", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: model name is empty", ErrInvalidConfig)
	}

	return &OpenAICollaborator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		config: config,
	}, nil
}

// Complete renders the request into a prompt and sends it to OpenAI.
func (o *OpenAICollaborator) Complete(ctx context.Context, req Request) (string, error) {
	prompt, err := AssemblePrompt(req)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	// Zero values mean provider defaults.
	if o.config.Temperature > 0 {
		params.Temperature = openai.Float(float64(o.config.Temperature))
	}
	if o.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.config.MaxTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCollabFailed, err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no response generated", ErrCollabFailed)
	}

	return completion.Choices[0].Message.Content, nil
}
