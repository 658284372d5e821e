package ai

import (
	"fmt"
	"strings"

	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
)

// BuildTaskPrompt builds the system and user prompts for grading one task.
func BuildTaskPrompt(kind TaskKind, originalText, transcript string) (string, string) {
	systemPrompt := `You are an expert communication coach grading a spoken-English practice task.
You must be accurate, neutral, and fact-based.
Return ONLY valid JSON.
Scores are integers from 0 to 100.`

	var taskDescription string
	switch kind {
	case TaskRepetition:
		taskDescription = "The user listened to a phrase and repeated it aloud. Grade how closely their transcribed speech matches the original phrase."
	default:
		taskDescription = "The user read a paragraph aloud. Grade accuracy against the original text: missed words, added words, and clarity."
	}

	userPrompt := fmt.Sprintf(`%s

Original text:
"""
%s
"""

User's transcribed speech:
"""
%s
"""

RULES:
- A transcript of %s or %s means no usable speech was captured; that task MUST score 0.
- Otherwise score 0-100 based on how faithfully the speech matches the original.
- Add a single short, encouraging comment about this task.

Return JSON with this exact structure:
{"score": number, "comment": "string"}`,
		taskDescription, originalText, transcript,
		model.SentinelNoSpeech, model.SentinelFailed)

	return systemPrompt, userPrompt
}

// BuildReportPrompt builds the prompts for composing the final HTML report
// from already-computed scores.
func BuildReportPrompt(input ReportInput) (string, string) {
	systemPrompt := `You are an expert communication coach writing a feedback report for a practice session.
You must be constructive and encouraging, and base the report ONLY on the data provided.
Return ONLY valid JSON.`

	userPrompt := fmt.Sprintf(`The user completed a communication practice session. All scores are already computed; do NOT change them.

PART 1: READING ALOUD
%s

PART 2: REPETITION
%s

FINAL SCORES:
reading=%d repetition=%d comprehension=%d overall=%d

RULES:
- A transcript of %s or %s means no speech was captured for that task; it scored 0. Mention it as a missed task with encouraging guidance, never as a technical failure.
- Write a detailed report in HTML with a main title, an overall summary, and separate sections for Reading Clarity, Repetition Accuracy, and Listening Comprehension.
- Provide constructive feedback and actionable next steps.

Return JSON with this exact structure:
{"reportText": "<html string>"}`,
		formatTasks(input.Reading), formatTasks(input.Repetition),
		input.Scores.Reading, input.Scores.Repetition,
		input.Scores.Comprehension, input.Scores.Overall,
		model.SentinelNoSpeech, model.SentinelFailed)

	return systemPrompt, userPrompt
}

func formatTasks(tasks []ScoredTask) string {
	if len(tasks) == 0 {
		return "(no tasks in this section)"
	}
	parts := make([]string, 0, len(tasks))
	for i, t := range tasks {
		parts = append(parts, fmt.Sprintf("Task %d (scored %d):\nOriginal: %q\nUser: %q", i+1, t.Score, t.OriginalText, t.Transcript))
	}
	return strings.Join(parts, "\n\n")
}
