package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAIDimension is the vector size of text-embedding-3-small.
const openAIDimension = 1536

// embedBatchSize bounds how many texts go into a single API request.
const embedBatchSize = 100

// OpenAIProvider generates embeddings via the OpenAI embeddings API.
type OpenAIProvider struct {
	client openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIProvider creates a provider using text-embedding-3-small.
func NewOpenAIProvider(apiKey string) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("embed: missing OpenAI API key")
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey))),
		model:  openai.EmbeddingModelTextEmbedding3Small,
	}, nil
}

// Embed generates the embedding vector for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: openai: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed: openai returned no embedding data")
	}
	return resp.Data[0].Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts, batching requests.
// Results are returned in input order.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))

	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		batch := texts[start:end]

		resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
			Model: p.model,
		})
		if err != nil {
			return nil, fmt.Errorf("embed: openai batch: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embed: openai returned %d embeddings for %d inputs", len(resp.Data), len(batch))
		}
		for _, d := range resp.Data {
			vectors = append(vectors, d.Embedding)
		}
	}

	return vectors, nil
}

// Dimension returns the provider's vector dimension.
func (p *OpenAIProvider) Dimension() int {
	return openAIDimension
}
