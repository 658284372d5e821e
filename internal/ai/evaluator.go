package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/Sushanta-Pal/InterViewPIP/internal/keys"
	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
)

// TaskKind tells the evaluator which section a task belongs to, so the
// prompt can describe the exercise correctly.
type TaskKind string

const (
	TaskReading    TaskKind = "reading"
	TaskRepetition TaskKind = "repetition"
)

// TaskScore is the evaluator's verdict on a single task.
type TaskScore struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// ScoredTask pairs a task's transcript with its final score, for report
// composition.
type ScoredTask struct {
	OriginalText string
	Transcript   string
	Score        int
	Comment      string
}

// ReportInput is everything the report prompt needs.
type ReportInput struct {
	Reading    []ScoredTask
	Repetition []ScoredTask
	Scores     model.ScoreSet
}

// Evaluator scores individual tasks and composes the session report.
// Implementations must retry internally on upstream overload before
// surfacing an error.
type Evaluator interface {
	ScoreTask(ctx context.Context, kind TaskKind, originalText, transcript string) (TaskScore, error)
	BuildReport(ctx context.Context, input ReportInput) (string, error)
}

// overloadRetries is the number of extra attempts on an overloaded
// upstream, with exponential backoff (1s, 2s) between them.
const overloadRetries = 2

// OpenAIEvaluator implements Evaluator on the OpenAI chat completion API,
// drawing a rotated key for every call.
type OpenAIEvaluator struct {
	logger      *logrus.Logger
	keys        keys.Source
	model       string
	baseURL     string
	backoffUnit time.Duration
}

// NewOpenAIEvaluator creates an evaluator using the given model (e.g.
// GPT-4o-mini).
func NewOpenAIEvaluator(logger *logrus.Logger, keySource keys.Source, modelName string) *OpenAIEvaluator {
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	return &OpenAIEvaluator{
		logger:      logger,
		keys:        keySource,
		model:       modelName,
		backoffUnit: time.Second,
	}
}

func (e *OpenAIEvaluator) client() *openai.Client {
	cfg := openai.DefaultConfig(e.keys.Next())
	if e.baseURL != "" {
		cfg.BaseURL = e.baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// ScoreTask asks the model to grade one transcript against its original
// text and returns a score in [0,100] plus a one-line comment.
func (e *OpenAIEvaluator) ScoreTask(ctx context.Context, kind TaskKind, originalText, transcript string) (TaskScore, error) {
	systemPrompt, userPrompt := BuildTaskPrompt(kind, originalText, transcript)

	content, err := e.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return TaskScore{}, fmt.Errorf("task evaluation failed: %w", err)
	}

	var result TaskScore
	if err := parseJSON(content, &result); err != nil {
		return TaskScore{}, fmt.Errorf("failed to parse task evaluation: %w", err)
	}
	result.Score = model.ClampScore(result.Score)
	return result, nil
}

// BuildReport asks the model for the full HTML session report.
func (e *OpenAIEvaluator) BuildReport(ctx context.Context, input ReportInput) (string, error) {
	systemPrompt, userPrompt := BuildReportPrompt(input)

	content, err := e.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("report generation failed: %w", err)
	}

	var result struct {
		ReportText string `json:"reportText"`
	}
	if err := parseJSON(content, &result); err != nil {
		return "", fmt.Errorf("failed to parse report response: %w", err)
	}
	if result.ReportText == "" {
		return "", fmt.Errorf("evaluator returned an empty report")
	}
	return result.ReportText, nil
}

// complete runs one chat completion, retrying on overload with backoff.
func (e *OpenAIEvaluator) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var lastErr error
	for attempt := 0; attempt <= overloadRetries; attempt++ {
		if attempt > 0 {
			backoff := e.backoffUnit << (attempt - 1)
			e.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
			}).Warn("Evaluator overloaded, backing off before retry")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := e.client().CreateChatCompletion(ctx, req)
		if err != nil {
			if isOverloaded(err) {
				lastErr = err
				continue
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("evaluator returned no choices")
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("evaluator overloaded after %d attempts: %w", overloadRetries+1, lastErr)
}

// isOverloaded matches the "temporarily overloaded" response class: rate
// limiting or service unavailability.
func isOverloaded(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode == http.StatusServiceUnavailable
	}
	return false
}

// parseJSON decodes a model response, tolerating markdown code fences
// around the JSON body.
func parseJSON(content string, v interface{}) error {
	if err := json.Unmarshal([]byte(content), v); err == nil {
		return nil
	}
	return json.Unmarshal([]byte(extractJSONFromMarkdown(content)), v)
}

// extractJSONFromMarkdown extracts JSON from markdown code blocks
func extractJSONFromMarkdown(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}

	return strings.TrimSpace(content)
}
