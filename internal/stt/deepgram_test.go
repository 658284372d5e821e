package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sushanta-Pal/InterViewPIP/internal/keys"
)

func testProvider(t *testing.T, handler http.HandlerFunc, pool ...string) (*DeepgramProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if len(pool) == 0 {
		pool = []string{"test-key"}
	}
	src, err := keys.NewRoundRobin(pool)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	p := NewDeepgramProvider(logger, src)
	p.apiURL = srv.URL
	return p, srv
}

func deepgramBody(transcript string) []byte {
	payload := map[string]interface{}{
		"results": map[string]interface{}{
			"channels": []map[string]interface{}{
				{"alternatives": []map[string]interface{}{
					{"transcript": transcript, "confidence": 0.98},
				}},
			},
		},
	}
	b, _ := json.Marshal(payload)
	return b
}

func TestDeepgramTranscribe(t *testing.T) {
	var gotURL string
	p, _ := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotURL = req["url"]
		w.Write(deepgramBody("the quick brown fox"))
	})

	got, err := p.Transcribe(context.Background(), "https://cdn.example.com/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "the quick brown fox", got)
	assert.Equal(t, "https://cdn.example.com/a.mp3", gotURL, "audio is submitted by URL, not by bytes")
}

func TestDeepgramSilenceIsNotAnError(t *testing.T) {
	p, _ := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(deepgramBody("   "))
	})

	got, err := p.Transcribe(context.Background(), "https://cdn.example.com/silent.mp3")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeepgramEmptyChannels(t *testing.T) {
	p, _ := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"channels":[]}}`))
	})

	got, err := p.Transcribe(context.Background(), "https://cdn.example.com/a.mp3")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeepgramNon200(t *testing.T) {
	p, _ := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_code":"INVALID_AUTH"}`, http.StatusUnauthorized)
	})

	_, err := p.Transcribe(context.Background(), "https://cdn.example.com/a.mp3")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestDeepgramErrorBody(t *testing.T) {
	p, _ := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"err_code":"REMOTE_CONTENT_ERROR","err_msg":"could not fetch audio"}`))
	})

	_, err := p.Transcribe(context.Background(), "https://cdn.example.com/gone.mp3")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "REMOTE_CONTENT_ERROR")
}

func TestDeepgramRotatesKeys(t *testing.T) {
	var mu sync.Mutex
	var auths []string
	p, _ := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Write(deepgramBody("ok"))
	}, "key1", "key2")

	for i := 0; i < 3; i++ {
		_, err := p.Transcribe(context.Background(), "https://cdn.example.com/a.mp3")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"Token key1", "Token key2", "Token key1"}, auths)
}
