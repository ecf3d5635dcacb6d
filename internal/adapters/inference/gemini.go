package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/SscSPs/txn_categorizer/internal/apperrors"
	"github.com/SscSPs/txn_categorizer/internal/core/domain"
	portssvc "github.com/SscSPs/txn_categorizer/internal/core/ports/services"
	"github.com/SscSPs/txn_categorizer/internal/middleware"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models the gateway calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGateway classifies transactions with a Gemini model.
type GeminiGateway struct {
	models contentGenerator
	model  string
}

var _ portssvc.InferenceGateway = (*GeminiGateway)(nil)

// NewGeminiGateway creates a gateway backed by the Gemini API. An empty apiKey
// yields a gateway whose every call fails with ErrGateway, so the worker keeps
// recording attempts and mappings end up in review instead of the process refusing to start.
func NewGeminiGateway(ctx context.Context, apiKey, model string) (*GeminiGateway, error) {
	if model == "" {
		model = DefaultModelName
	}
	if apiKey == "" {
		return &GeminiGateway{model: model}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGateway{models: client.Models, model: model}, nil
}

func newGatewayWithGenerator(models contentGenerator, model string) *GeminiGateway {
	return &GeminiGateway{models: models, model: model}
}

// modelAnswer is the JSON object the model is instructed to return.
type modelAnswer struct {
	Category   string          `json:"category"`
	Confidence json.RawMessage `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

func (g *GeminiGateway) Classify(ctx context.Context, req domain.InferenceRequest) (*domain.InferenceResult, error) {
	if g.models == nil {
		return nil, fmt.Errorf("%w: gemini API key is not configured", apperrors.ErrGateway)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: buildPrompt(req)}},
		},
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrGatewayTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: generate content: %v", apperrors.ErrGateway, err)
	}

	rawText := resp.Text()
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("%w: empty response from model", apperrors.ErrGateway)
	}

	result, err := parseAnswer(rawText)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Debug("Unparseable model answer",
			slog.String("model", g.model),
			slog.String("raw", rawText))
		return nil, err
	}
	return result, nil
}

func buildPrompt(req domain.InferenceRequest) string {
	return "You categorize personal and business bank transactions.\n\n" +
		"Transaction:\n" +
		fmt.Sprintf("- description: %q\n", req.Description) +
		fmt.Sprintf("- amount: %s %s (negative means money out)\n\n", req.Amount.String(), req.CurrencyCode) +
		"Return ONLY a JSON object with these fields:\n" +
		"- \"category\": string, a short spending category such as \"Groceries\" or \"Transport\"\n" +
		"- \"confidence\": number between 0 and 1\n" +
		"- \"reasoning\": string, one sentence\n" +
		"Do NOT wrap the response in code fences.\n"
}

// parseAnswer turns the model text into a result. Any structural problem is an ErrGateway.
func parseAnswer(raw string) (*domain.InferenceResult, error) {
	var answer modelAnswer
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &answer); err != nil {
		return nil, fmt.Errorf("%w: unmarshal model answer: %v", apperrors.ErrGateway, err)
	}

	category := strings.TrimSpace(answer.Category)
	if category == "" {
		return nil, fmt.Errorf("%w: model answer has no category", apperrors.ErrGateway)
	}
	if len(answer.Confidence) == 0 {
		return nil, fmt.Errorf("%w: model answer has no confidence", apperrors.ErrGateway)
	}

	// Models sometimes quote numbers.
	confText := strings.Trim(string(answer.Confidence), `"`)
	confidence, err := decimal.NewFromString(confText)
	if err != nil {
		return nil, fmt.Errorf("%w: confidence %s is not a number", apperrors.ErrGateway, string(answer.Confidence))
	}
	if confidence.IsNegative() || confidence.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: confidence %s outside [0,1]", apperrors.ErrGateway, confidence)
	}

	return &domain.InferenceResult{
		Category:   category,
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(answer.Reasoning),
	}, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost object if there is chatter around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
