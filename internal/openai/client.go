package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultTimeout bounds every upstream call when no timeout is configured
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions, expected 1536")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrNoChoices is returned when a completion response carries no choices
	ErrNoChoices = errors.New("no completion choices returned")
)

// ChatMessage is one turn handed to the completion API.
type ChatMessage struct {
	Role    string
	Content string
}

// Completion is the result of a chat completion call.
type Completion struct {
	Text   string
	Tokens int
	Model  string
}

// CompletionRequest describes a single chat completion call.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float32
}

// API defines the upstream calls the client depends on.
type API interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
	CreateCompletion(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Client wraps the OpenAI API client
type Client struct {
	api        API
	dimensions int
	timeout    time.Duration
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateCompletion calls the OpenAI chat completion API
func (a *OpenAIAdapter) CreateCompletion(ctx context.Context, req CompletionRequest) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	return &Completion{
		Text:   resp.Choices[0].Message.Content,
		Tokens: resp.Usage.TotalTokens,
		Model:  resp.Model,
	}, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	Timeout             time.Duration
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel),
		dimensions: dimensions,
		timeout:    timeout,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}

// CreateCompletion runs a chat completion with the client's timeout applied.
func (c *Client) CreateCompletion(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if len(req.Messages) == 0 {
		return nil, ErrEmptyText
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	completion, err := c.api.CreateCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion: %w", err)
	}

	return completion, nil
}
