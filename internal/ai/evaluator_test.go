package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sushanta-Pal/InterViewPIP/internal/keys"
	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
)

func testEvaluator(t *testing.T, handler http.HandlerFunc) *OpenAIEvaluator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src, err := keys.NewRoundRobin([]string{"test-key"})
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	e := NewOpenAIEvaluator(logger, src, "")
	e.baseURL = srv.URL + "/v1"
	e.backoffUnit = time.Millisecond
	return e
}

func chatCompletion(content string) []byte {
	resp := map[string]interface{}{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			},
		},
	}
	b, _ := json.Marshal(resp)
	return b
}

func writeOverloaded(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_exceeded"}}`))
}

func TestScoreTask(t *testing.T) {
	e := testEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatCompletion(`{"score":85,"comment":"clear delivery, one dropped word"}`))
	})

	got, err := e.ScoreTask(context.Background(), TaskReading, "original text", "spoken text")
	require.NoError(t, err)
	assert.Equal(t, 85, got.Score)
	assert.Equal(t, "clear delivery, one dropped word", got.Comment)
}

func TestScoreTaskClampsOutOfRange(t *testing.T) {
	e := testEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatCompletion(`{"score":140,"comment":"enthusiastic grader"}`))
	})

	got, err := e.ScoreTask(context.Background(), TaskRepetition, "a", "a")
	require.NoError(t, err)
	assert.Equal(t, 100, got.Score)
}

func TestScoreTaskToleratesMarkdownFences(t *testing.T) {
	e := testEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatCompletion("```json\n{\"score\":70,\"comment\":\"fine\"}\n```"))
	})

	got, err := e.ScoreTask(context.Background(), TaskReading, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 70, got.Score)
}

func TestCompleteRetriesOnOverload(t *testing.T) {
	var calls atomic.Int32
	e := testEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeOverloaded(w)
			return
		}
		w.Write(chatCompletion(`{"score":90,"comment":"ok"}`))
	})

	got, err := e.ScoreTask(context.Background(), TaskReading, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 90, got.Score)
	assert.Equal(t, int32(3), calls.Load(), "two overload responses, then success")
}

func TestCompleteGivesUpAfterRetryBudget(t *testing.T) {
	var calls atomic.Int32
	e := testEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeOverloaded(w)
	})

	_, err := e.ScoreTask(context.Background(), TaskReading, "a", "b")
	assert.Error(t, err)
	assert.Equal(t, int32(overloadRetries+1), calls.Load())
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	e := testEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid request","type":"invalid_request_error"}}`))
	})

	_, err := e.ScoreTask(context.Background(), TaskReading, "a", "b")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "only overload responses are retried")
}

func TestBuildReport(t *testing.T) {
	var gotPrompt string
	e := testEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Messages[len(req.Messages)-1].Content
		w.Write(chatCompletion(`{"reportText":"<h3>Session Report</h3><p>Good work.</p>"}`))
	})

	report, err := e.BuildReport(context.Background(), ReportInput{
		Reading: []ScoredTask{{OriginalText: "hello world", Transcript: "hello world", Score: 95, Comment: "clean"}},
		Scores:  model.ScoreSet{Overall: 90, Reading: 95, Repetition: 85, Comprehension: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, "<h3>Session Report</h3><p>Good work.</p>", report)
	assert.Contains(t, gotPrompt, "hello world")
	assert.Contains(t, gotPrompt, fmt.Sprintf("%d", 95), "precomputed scores are handed to the model, not recomputed by it")
}

func TestBuildReportRejectsEmptyReport(t *testing.T) {
	e := testEvaluator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatCompletion(`{"reportText":""}`))
	})

	_, err := e.BuildReport(context.Background(), ReportInput{})
	assert.Error(t, err)
}

func TestExtractJSONFromMarkdown(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSONFromMarkdown("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSONFromMarkdown("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSONFromMarkdown(`{"a":1}`))
}
