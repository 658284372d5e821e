package model

// AudioReference points at one uploaded practice recording. The URL is
// fetchable by the transcription service; the storage path is kept so the
// worker can delete the object once the job is done.
type AudioReference struct {
	URL          string `json:"url"`
	StoragePath  string `json:"path"`
	OriginalText string `json:"originalText"`
}

// ComprehensionResult is one answered comprehension question.
type ComprehensionResult struct {
	Question  string `json:"question"`
	IsCorrect bool   `json:"isCorrect"`
}

// UserProfileInfo carries the profile fields the client submits alongside a
// practice session. The worker copies them into the profile row on upsert.
type UserProfileInfo struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	University  string `json:"university"`
	RollNumber  string `json:"rollNumber"`
	DateOfBirth string `json:"dateOfBirth"`
	Department  string `json:"department"`
	Gender      string `json:"gender"`
}

// JobPayload is the unit of work handed to the analysis worker. It is
// immutable once enqueued. ReadingAudio and RepetitionAudio index-align with
// the task order presented to the user; position i is task i.
type JobPayload struct {
	UserID               string                `json:"userId"`
	UserProfile          UserProfileInfo       `json:"userProfile"`
	ComprehensionResults []ComprehensionResult `json:"comprehensionResults"`
	ReadingAudio         []AudioReference      `json:"readingAudio"`
	RepetitionAudio      []AudioReference      `json:"repetitionAudio"`
}

// StoragePaths collects the deletable paths of every audio object the job
// references, skipping references that were never uploaded.
func (p JobPayload) StoragePaths() []string {
	var paths []string
	for _, ref := range p.ReadingAudio {
		if ref.StoragePath != "" {
			paths = append(paths, ref.StoragePath)
		}
	}
	for _, ref := range p.RepetitionAudio {
		if ref.StoragePath != "" {
			paths = append(paths, ref.StoragePath)
		}
	}
	return paths
}
