// Package openaiembed embeds text through an OpenAI-compatible
// embeddings API.
package openaiembed

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/matchadb/matcha/embed"
)

const (
	// DefaultModel is used when WithModel is not given.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimensions matches DefaultModel's native output size.
	DefaultDimensions = 1536

	// maxBatch is the API's per-request input limit. Larger batches are
	// split transparently.
	maxBatch = 2048
)

// Client implements embed.Embedder against the OpenAI embeddings API.
// Any compatible provider works via WithBaseURL.
type Client struct {
	client *openai.Client
	model  string
	dim    int
}

var _ embed.Embedder = (*Client)(nil)

type config struct {
	model      string
	dim        int
	baseURL    string
	httpClient *http.Client
}

// Option configures New.
type Option func(*config)

// WithModel sets the embedding model name.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithDimensions sets the requested output dimensionality. The model
// must support shortened embeddings (text-embedding-3-* do).
func WithDimensions(dim int) Option {
	return func(c *config) { c.dim = dim }
}

// WithBaseURL points the client at a compatible non-OpenAI endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// New creates an embeddings client.
func New(apiKey string, optFns ...Option) *Client {
	cfg := config{
		model:      DefaultModel,
		dim:        DefaultDimensions,
		httpClient: http.DefaultClient,
	}
	for _, fn := range optFns {
		fn(&cfg)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(cfg.httpClient),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(clientOpts...)

	return &Client{
		client: &client,
		model:  cfg.model,
		dim:    cfg.dim,
	}
}

// Embed returns the embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embed.ErrEmptyInput
	}
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns embeddings for multiple texts, splitting batches
// larger than the API limit into multiple requests.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, embed.ErrEmptyInput
	}

	result := make([][]float32, len(texts))
	for lo := 0; lo < len(texts); lo += maxBatch {
		hi := min(lo+maxBatch, len(texts))

		vecs, err := c.request(ctx, texts[lo:hi])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", lo, hi, err)
		}
		copy(result[lo:], vecs)
	}
	return result, nil
}

// Dimension returns the configured output dimensionality.
func (c *Client) Dimension() int { return c.dim }

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

func (c *Client) request(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model:          c.model,
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Dimensions:     openai.Int(int64(c.dim)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}

	// Responses are index-addressed, not necessarily in input order.
	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= int64(len(texts)) {
			return nil, fmt.Errorf("embedding index %d out of range for batch size %d", item.Index, len(texts))
		}
		vecs[item.Index] = toFloat32(item.Embedding)
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vecs, nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
