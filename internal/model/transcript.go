package model

// TranscriptStatus tags a transcript as real speech or one of the two
// sentinel outcomes. Sentinel transcripts always score 0 for their task.
type TranscriptStatus string

const (
	TranscriptOK       TranscriptStatus = "ok"
	TranscriptNoSpeech TranscriptStatus = "no_speech"
	TranscriptFailed   TranscriptStatus = "failed"
)

// Sentinel tokens used when rendering transcripts into evaluator prompts and
// reports. They are presentation values only; code branches on Status.
const (
	SentinelNoSpeech = "NO_SPEECH"
	SentinelFailed   = "TRANSCRIPTION_FAILED"
)

// Transcript is the per-task result of speech-to-text.
type Transcript struct {
	OriginalText string           `json:"originalText"`
	Text         string           `json:"transcribedText"`
	Status       TranscriptStatus `json:"status"`
}

func OKTranscript(original, text string) Transcript {
	return Transcript{OriginalText: original, Text: text, Status: TranscriptOK}
}

func NoSpeechTranscript(original string) Transcript {
	return Transcript{OriginalText: original, Status: TranscriptNoSpeech}
}

func FailedTranscript(original string) Transcript {
	return Transcript{OriginalText: original, Status: TranscriptFailed}
}

// Sentinel reports whether the transcript stands in for missing speech.
func (t Transcript) Sentinel() bool {
	return t.Status != TranscriptOK
}

// PromptText returns the text to show the evaluator: the transcript itself,
// or the sentinel token for silent/failed tasks.
func (t Transcript) PromptText() string {
	switch t.Status {
	case TranscriptNoSpeech:
		return SentinelNoSpeech
	case TranscriptFailed:
		return SentinelFailed
	default:
		return t.Text
	}
}
