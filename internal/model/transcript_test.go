package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptSentinels(t *testing.T) {
	ok := OKTranscript("original", "spoken")
	assert.False(t, ok.Sentinel())
	assert.Equal(t, "spoken", ok.PromptText())

	silent := NoSpeechTranscript("original")
	assert.True(t, silent.Sentinel())
	assert.Equal(t, SentinelNoSpeech, silent.PromptText())

	failed := FailedTranscript("original")
	assert.True(t, failed.Sentinel())
	assert.Equal(t, SentinelFailed, failed.PromptText())
}
