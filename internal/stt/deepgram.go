package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sushanta-Pal/InterViewPIP/internal/keys"
)

const defaultDeepgramURL = "https://api.deepgram.com/v1/listen?model=nova-2&smart_format=true"

// DeepgramProvider implements Transcriber using Deepgram's pre-recorded API.
// Deepgram fetches the audio itself from the submitted URL, so the worker
// never downloads audio bytes.
type DeepgramProvider struct {
	logger *logrus.Logger
	keys   keys.Source
	apiURL string
	client *http.Client
}

// NewDeepgramProvider creates a Deepgram transcriber drawing credentials
// from the given key source.
func NewDeepgramProvider(logger *logrus.Logger, keySource keys.Source) *DeepgramProvider {
	return &DeepgramProvider{
		logger: logger,
		keys:   keySource,
		apiURL: defaultDeepgramURL,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

// Name returns the provider name
func (p *DeepgramProvider) Name() string {
	return "deepgram"
}

// deepgramResponse is the subset of the API response we read.
type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
	ErrCode string `json:"err_code,omitempty"`
	ErrMsg  string `json:"err_msg,omitempty"`
}

// Transcribe submits the audio URL to Deepgram and returns the transcript.
// Silence comes back as an empty string with a nil error.
func (p *DeepgramProvider) Transcribe(ctx context.Context, audioURL string) (string, error) {
	startTime := time.Now()

	body, err := json.Marshal(map[string]string{"url": audioURL})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.keys.Next())
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request to Deepgram: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"url":    audioURL,
		}).Error("Deepgram API error")
		return "", fmt.Errorf("Deepgram returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var dgResp deepgramResponse
	if err := json.Unmarshal(respBody, &dgResp); err != nil {
		return "", fmt.Errorf("failed to parse Deepgram response: %w", err)
	}
	if dgResp.ErrCode != "" {
		return "", fmt.Errorf("Deepgram error %s: %s", dgResp.ErrCode, dgResp.ErrMsg)
	}

	transcript := ""
	if len(dgResp.Results.Channels) > 0 && len(dgResp.Results.Channels[0].Alternatives) > 0 {
		transcript = strings.TrimSpace(dgResp.Results.Channels[0].Alternatives[0].Transcript)
	}

	p.logger.WithFields(logrus.Fields{
		"length":   len(transcript),
		"duration": time.Since(startTime),
	}).Debug("Deepgram transcription finished")

	return transcript, nil
}
