package model

import "math"

// ComprehensionScore is the percentage of correctly answered questions,
// rounded to nearest. An empty result list scores 100: a session without a
// comprehension section should not drag the overall score down.
func ComprehensionScore(results []ComprehensionResult) int {
	if len(results) == 0 {
		return 100
	}
	correct := 0
	for _, r := range results {
		if r.IsCorrect {
			correct++
		}
	}
	return roundedMean(correct*100, len(results))
}

// SectionScore averages per-task scores into a section score. Sections with
// no tasks score 100, matching the empty-comprehension policy.
func SectionScore(taskScores []int) int {
	if len(taskScores) == 0 {
		return 100
	}
	sum := 0
	for _, s := range taskScores {
		sum += s
	}
	return roundedMean(sum, len(taskScores))
}

// OverallScore is the unweighted mean of the three section scores.
func OverallScore(reading, repetition, comprehension int) int {
	return roundedMean(reading+repetition+comprehension, 3)
}

// ClampScore forces a score into [0,100].
func ClampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// RecomputeAverages rederives the four profile averages from the complete
// session history. It is a pure function of the history; it never updates
// incrementally, so repeated calls cannot drift.
func RecomputeAverages(p *UserProfile) {
	n := len(p.SessionHistory)
	if n == 0 {
		p.OverallAverageScore = 0
		p.AverageReadingScore = 0
		p.AverageRepetitionScore = 0
		p.AverageComprehensionScore = 0
		return
	}
	var overall, reading, repetition, comprehension int
	for _, s := range p.SessionHistory {
		overall += s.Feedback.Scores.Overall
		reading += s.Feedback.Scores.Reading
		repetition += s.Feedback.Scores.Repetition
		comprehension += s.Feedback.Scores.Comprehension
	}
	p.OverallAverageScore = roundedMean(overall, n)
	p.AverageReadingScore = roundedMean(reading, n)
	p.AverageRepetitionScore = roundedMean(repetition, n)
	p.AverageComprehensionScore = roundedMean(comprehension, n)
}

func roundedMean(sum, n int) int {
	return int(math.Round(float64(sum) / float64(n)))
}
