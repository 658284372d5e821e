package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComprehensionScore(t *testing.T) {
	tests := []struct {
		name    string
		results []ComprehensionResult
		want    int
	}{
		{"empty list scores 100", nil, 100},
		{"all correct", []ComprehensionResult{{IsCorrect: true}, {IsCorrect: true}}, 100},
		{"none correct", []ComprehensionResult{{}, {}}, 0},
		{"half correct", []ComprehensionResult{{IsCorrect: true}, {}}, 50},
		{"two thirds rounds to 67", []ComprehensionResult{{IsCorrect: true}, {IsCorrect: true}, {}}, 67},
		{"one third rounds to 33", []ComprehensionResult{{IsCorrect: true}, {}, {}}, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComprehensionScore(tt.results))
		})
	}
}

func TestSectionScore(t *testing.T) {
	assert.Equal(t, 100, SectionScore(nil), "empty section matches empty-comprehension policy")
	assert.Equal(t, 0, SectionScore([]int{0, 0, 0}), "all-sentinel section scores zero")
	assert.Equal(t, 40, SectionScore([]int{80, 0}), "sentinel drags the average down, not skipped")
	assert.Equal(t, 83, SectionScore([]int{90, 75}))
}

func TestOverallScore(t *testing.T) {
	assert.Equal(t, 73, OverallScore(40, 80, 100))
	assert.Equal(t, 0, OverallScore(0, 0, 0))
	assert.Equal(t, 100, OverallScore(100, 100, 100))
	assert.Equal(t, 67, OverallScore(50, 50, 100))
}

func TestScoreBounds(t *testing.T) {
	for _, scores := range [][]int{{0, 0, 0}, {100, 100, 100}, {13, 87, 55}} {
		overall := OverallScore(scores[0], scores[1], scores[2])
		assert.GreaterOrEqual(t, overall, 0)
		assert.LessOrEqual(t, overall, 100)
	}
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 100, ClampScore(150))
	assert.Equal(t, 42, ClampScore(42))
}

func TestRecomputeAverages(t *testing.T) {
	profile := &UserProfile{
		SessionHistory: []Session{
			sessionWithScores(60, 80, 100, 80),
			sessionWithScores(40, 60, 80, 60),
		},
	}

	RecomputeAverages(profile)
	assert.Equal(t, 50, profile.AverageReadingScore)
	assert.Equal(t, 70, profile.AverageRepetitionScore)
	assert.Equal(t, 90, profile.AverageComprehensionScore)
	assert.Equal(t, 70, profile.OverallAverageScore)

	// Pure function of history: a second pass changes nothing.
	before := *profile
	RecomputeAverages(profile)
	assert.Equal(t, before.OverallAverageScore, profile.OverallAverageScore)
	assert.Equal(t, before.AverageReadingScore, profile.AverageReadingScore)
	assert.Equal(t, before.AverageRepetitionScore, profile.AverageRepetitionScore)
	assert.Equal(t, before.AverageComprehensionScore, profile.AverageComprehensionScore)
}

func TestRecomputeAveragesEmptyHistory(t *testing.T) {
	profile := &UserProfile{
		OverallAverageScore: 50,
		AverageReadingScore: 50,
	}
	RecomputeAverages(profile)
	assert.Zero(t, profile.OverallAverageScore)
	assert.Zero(t, profile.AverageReadingScore)
}

func sessionWithScores(reading, repetition, comprehension, overall int) Session {
	return Session{
		Score: overall,
		Feedback: SessionFeedback{
			Scores: ScoreSet{
				Overall:       overall,
				Reading:       reading,
				Repetition:    repetition,
				Comprehension: comprehension,
			},
		},
	}
}
