package leverage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ModelRationale generates insights with a chat completion instead of the
// keyword tables. Model output is not deterministic, so deployments that
// rely on ValidateDeterminism checks should prefer KeywordRationale.
type ModelRationale struct {
	client openai.Client
	model  openai.ChatModel
}

// NewModelRationale creates a model-backed provider.
func NewModelRationale(apiKey string) (*ModelRationale, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("leverage: missing OpenAI API key")
	}
	return &ModelRationale{
		client: openai.NewClient(option.WithAPIKey(strings.TrimSpace(apiKey))),
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

const rationaleSystemPrompt = `You analyze how an existing open-source repository ` +
	`could be creatively reused for a developer's stated problem. Respond with a JSON ` +
	`object containing exactly two string fields: "reasoning" (one or two sentences of ` +
	`cross-domain reuse insight) and "integration_hint" (one short actionable sentence).`

// Rationale asks the model for a reuse insight for one candidate.
func (r *ModelRationale) Rationale(ctx context.Context, intent string, c Candidate) (Insight, error) {
	prompt := fmt.Sprintf("Problem statement: %s\n\nRepository: %s\nDescription: %s\nCapabilities: %s",
		intent, c.FullName, c.Description, strings.Join(c.Capabilities, ", "))

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(rationaleSystemPrompt),
			openai.UserMessage(prompt),
		},
		Model: r.model,
	})
	if err != nil {
		return Insight{}, fmt.Errorf("leverage: rationale completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Insight{}, fmt.Errorf("leverage: rationale completion returned no choices")
	}

	content := resp.Choices[0].Message.Content

	var decoded struct {
		Reasoning       string `json:"reasoning"`
		IntegrationHint string `json:"integration_hint"`
	}
	if err := json.Unmarshal([]byte(content), &decoded); err != nil || decoded.Reasoning == "" {
		// Model ignored the format; use the raw text rather than dropping it.
		insight := fallbackInsight()
		insight.Reasoning = strings.TrimSpace(content)
		return insight, nil
	}

	return Insight{
		Reasoning:       decoded.Reasoning,
		IntegrationHint: decoded.IntegrationHint,
		Confidence:      0.85,
	}, nil
}
