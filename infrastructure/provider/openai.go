package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// errEmbeddingCountMismatch indicates the API returned a different number
// of vectors than texts requested.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// errUpstreamProviderFailure indicates the API returned HTTP 200 but the
// response body contained an error instead of embedding data. This happens
// with routing providers like OpenRouter when all upstream providers fail;
// go-openai silently parses the error body as an empty response.
var errUpstreamProviderFailure = errors.New("upstream provider failure")

// OpenAIConfig holds settings for an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// OpenAIEmbedder generates embeddings through any OpenAI-compatible
// /v1/embeddings endpoint. Calls are made once, without retries; a failed
// call fails the run.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	loaded     bool
}

// NewOpenAIEmbedder creates an embedder from configuration. Dimensions
// defaults to 384 to match the backfilled column; endpoints that support
// the dimensions parameter truncate their native width accordingly.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = miniLMDimensions
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(config),
		model:      cfg.Model,
		dimensions: dimensions,
	}
}

// Load validates the configuration. The endpoint holds the model, so
// there is nothing to warm up locally.
func (p *OpenAIEmbedder) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.model == "" {
		return NewProviderError("load", 0, "no embedding model configured", nil)
	}
	p.loaded = true
	return nil
}

// Dimensions returns the configured vector width.
func (p *OpenAIEmbedder) Dimensions() int { return p.dimensions }

// Embed generates embeddings for the given texts in a single API call.
func (p *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if !p.loaded {
		return nil, ErrModelNotLoaded
	}

	req := openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(p.model),
		Input:      texts,
		Dimensions: p.dimensions,
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, p.wrapError("embedding", err)
	}

	// Routing providers can return HTTP 200 with an error body: zero data,
	// zero usage, empty model.
	if len(resp.Data) == 0 && string(resp.Model) == "" && resp.Usage.TotalTokens == 0 {
		return nil, fmt.Errorf("%w: endpoint returned no embedding data, no model, and zero usage", errUpstreamProviderFailure)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != p.dimensions {
			return nil, fmt.Errorf("endpoint returned %d dimensions, want %d", len(data.Embedding), p.dimensions)
		}
		embeddings[i] = data.Embedding
	}

	return embeddings, nil
}

// Close is a no-op for the endpoint embedder.
func (p *OpenAIEmbedder) Close() error {
	return nil
}

// wrapError converts go-openai errors into a ProviderError.
func (p *OpenAIEmbedder) wrapError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}

var _ Embedder = (*OpenAIEmbedder)(nil)
