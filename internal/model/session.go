package model

// SessionType is currently always "Communication"; other practice modes may
// be added later.
const SessionTypeCommunication = "Communication"

// ScoreSet holds the four section scores, each an integer in [0,100].
// Overall is the unweighted mean of the other three, rounded to nearest.
type ScoreSet struct {
	Overall       int `json:"overall"`
	Reading       int `json:"reading"`
	Repetition    int `json:"repetition"`
	Comprehension int `json:"comprehension"`
}

// SessionFeedback is what the client renders after polling: the scores plus
// the evaluator's HTML report.
type SessionFeedback struct {
	Scores     ScoreSet `json:"scores"`
	ReportText string   `json:"reportText"`
}

// Session is one persisted, scored practice attempt. Its ID equals the job
// identifier returned at submission so the client can poll with the same
// token. Sessions are immutable after creation.
type Session struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	Type     string          `json:"type"`
	Score    int             `json:"score"`
	Feedback SessionFeedback `json:"feedback"`
}

// UserProfile is the durable aggregate of one user's practice history.
// The four averages are derived from SessionHistory and recomputed in full
// on every append. Version is the optimistic concurrency token checked by
// the repository on upsert.
type UserProfile struct {
	UserID                    string    `json:"userId"`
	Email                     string    `json:"email"`
	DisplayName               string    `json:"displayName"`
	University                string    `json:"university"`
	RollNumber                string    `json:"rollNumber"`
	DateOfBirth               string    `json:"dateOfBirth"`
	Department                string    `json:"department"`
	Gender                    string    `json:"gender"`
	SessionHistory            []Session `json:"sessionHistory"`
	OverallAverageScore       int       `json:"overallAverageScore"`
	AverageReadingScore       int       `json:"averageReadingScore"`
	AverageRepetitionScore    int       `json:"averageRepetitionScore"`
	AverageComprehensionScore int       `json:"averageComprehensionScore"`
	Version                   int       `json:"-"`
}

// ApplyInfo refreshes the mutable profile fields from a submitted payload.
func (p *UserProfile) ApplyInfo(info UserProfileInfo) {
	p.Email = info.Email
	p.DisplayName = info.DisplayName
	p.University = info.University
	p.RollNumber = info.RollNumber
	p.DateOfBirth = info.DateOfBirth
	p.Department = info.Department
	p.Gender = info.Gender
}
