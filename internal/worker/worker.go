package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sushanta-Pal/InterViewPIP/internal/ai"
	"github.com/Sushanta-Pal/InterViewPIP/internal/metrics"
	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
	"github.com/Sushanta-Pal/InterViewPIP/internal/queue"
	"github.com/Sushanta-Pal/InterViewPIP/internal/repository"
	"github.com/Sushanta-Pal/InterViewPIP/internal/storage"
	"github.com/Sushanta-Pal/InterViewPIP/internal/stt"
)

const (
	// defaultFanout caps concurrent transcription calls within one job so a
	// large task count cannot overwhelm the transcription service.
	defaultFanout = 8

	// maxUpsertRetries bounds the read-modify-write loop when concurrent
	// jobs for the same user race on the profile row.
	maxUpsertRetries = 5
)

// Worker converts a JobPayload into a persisted Session and an updated
// profile aggregate. One Worker serves all queue consumer slots; it holds
// no per-job state.
type Worker struct {
	logger      *logrus.Logger
	transcriber stt.Transcriber
	evaluator   ai.Evaluator
	store       storage.ObjectStore
	profiles    repository.ProfileRepository
	fanout      int
	now         func() time.Time
}

// New wires a worker from its collaborators.
func New(logger *logrus.Logger, transcriber stt.Transcriber, evaluator ai.Evaluator, store storage.ObjectStore, profiles repository.ProfileRepository) *Worker {
	return &Worker{
		logger:      logger,
		transcriber: transcriber,
		evaluator:   evaluator,
		store:       store,
		profiles:    profiles,
		fanout:      defaultFanout,
		now:         time.Now,
	}
}

// Process handles one job end to end:
// received → transcribing → scoring → persisting → cleaning_up → done.
// Errors from transcribing/scoring are retryable by the queue; persistence
// failures are permanent because the analysis is already computed and a
// redelivery would redo the expensive AI calls.
func (w *Worker) Process(ctx context.Context, job queue.Job) error {
	start := w.now()
	log := w.logger.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"user_id": job.Payload.UserID,
		"attempt": job.Attempt,
	})
	log.WithField("stage", "received").Info("Processing analysis job")

	reading := w.transcribeAll(ctx, log, job.Payload.ReadingAudio)
	repetition := w.transcribeAll(ctx, log, job.Payload.RepetitionAudio)
	log.WithField("stage", "transcribing").Info("All transcriptions resolved")

	feedback, err := w.score(ctx, job.Payload, reading, repetition)
	if err != nil {
		metrics.JobsProcessed.WithLabelValues("failed").Inc()
		return fmt.Errorf("scoring job %s: %w", job.ID, err)
	}
	log.WithFields(logrus.Fields{
		"stage":   "scoring",
		"overall": feedback.Scores.Overall,
	}).Info("Session scored")

	session := model.Session{
		ID:       job.ID,
		Date:     w.now().UTC().Format(time.RFC3339),
		Type:     model.SessionTypeCommunication,
		Score:    feedback.Scores.Overall,
		Feedback: feedback,
	}

	if err := w.persist(ctx, job.Payload, session); err != nil {
		// The analysis is complete; dump it so it can be replayed by hand
		// instead of re-running transcription and scoring.
		sessionJSON, _ := json.Marshal(session)
		log.WithError(err).WithFields(logrus.Fields{
			"stage":   "persisting",
			"session": string(sessionJSON),
		}).Error("Persistence failed, analysis logged for manual replay")
		metrics.JobsProcessed.WithLabelValues("persist_failed").Inc()
		return queue.Permanent(fmt.Errorf("persisting job %s: %w", job.ID, err))
	}

	w.cleanup(ctx, log, job.Payload)

	metrics.JobsProcessed.WithLabelValues("completed").Inc()
	metrics.JobDuration.Observe(w.now().Sub(start).Seconds())
	log.WithField("stage", "done").Info("Analysis job complete")
	return nil
}

// transcribeAll fans transcription out over every audio reference, bounded
// by a semaphore. Failures never abort the batch; each item resolves to a
// real transcript or a sentinel, in task order.
func (w *Worker) transcribeAll(ctx context.Context, log *logrus.Entry, refs []model.AudioReference) []model.Transcript {
	out := make([]model.Transcript, len(refs))
	sem := make(chan struct{}, w.fanout)
	var wg sync.WaitGroup

	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref model.AudioReference) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			text, err := w.transcriber.Transcribe(ctx, ref.URL)
			switch {
			case err != nil:
				log.WithError(err).WithField("task", i).Warn("Transcription failed for task")
				out[i] = model.FailedTranscript(ref.OriginalText)
				metrics.Transcriptions.WithLabelValues("failed").Inc()
			case strings.TrimSpace(text) == "":
				out[i] = model.NoSpeechTranscript(ref.OriginalText)
				metrics.Transcriptions.WithLabelValues("no_speech").Inc()
			default:
				out[i] = model.OKTranscript(ref.OriginalText, text)
				metrics.Transcriptions.WithLabelValues("ok").Inc()
			}
		}(i, ref)
	}
	wg.Wait()
	return out
}

// score grades each task, derives the section scores, and has the evaluator
// compose the report. Sentinel tasks score 0 locally and never reach the
// evaluator.
func (w *Worker) score(ctx context.Context, payload model.JobPayload, reading, repetition []model.Transcript) (model.SessionFeedback, error) {
	readingTasks, readingScore, err := w.scoreSection(ctx, ai.TaskReading, reading)
	if err != nil {
		return model.SessionFeedback{}, err
	}
	repetitionTasks, repetitionScore, err := w.scoreSection(ctx, ai.TaskRepetition, repetition)
	if err != nil {
		return model.SessionFeedback{}, err
	}

	scores := model.ScoreSet{
		Reading:       readingScore,
		Repetition:    repetitionScore,
		Comprehension: model.ComprehensionScore(payload.ComprehensionResults),
	}
	scores.Overall = model.OverallScore(scores.Reading, scores.Repetition, scores.Comprehension)

	report, err := w.evaluator.BuildReport(ctx, ai.ReportInput{
		Reading:    readingTasks,
		Repetition: repetitionTasks,
		Scores:     scores,
	})
	if err != nil {
		return model.SessionFeedback{}, err
	}

	return model.SessionFeedback{Scores: scores, ReportText: report}, nil
}

func (w *Worker) scoreSection(ctx context.Context, kind ai.TaskKind, transcripts []model.Transcript) ([]ai.ScoredTask, int, error) {
	tasks := make([]ai.ScoredTask, len(transcripts))
	taskScores := make([]int, len(transcripts))

	for i, t := range transcripts {
		if t.Sentinel() {
			tasks[i] = ai.ScoredTask{
				OriginalText: t.OriginalText,
				Transcript:   t.PromptText(),
				Score:        0,
				Comment:      "No usable speech was captured for this task.",
			}
			continue
		}
		result, err := w.evaluator.ScoreTask(ctx, kind, t.OriginalText, t.Text)
		if err != nil {
			return nil, 0, fmt.Errorf("evaluating %s task %d: %w", kind, i, err)
		}
		tasks[i] = ai.ScoredTask{
			OriginalText: t.OriginalText,
			Transcript:   t.Text,
			Score:        result.Score,
			Comment:      result.Comment,
		}
		taskScores[i] = result.Score
	}
	return tasks, model.SectionScore(taskScores), nil
}

// persist appends the session and rewrites the whole profile, recomputing
// every average from the full history. Concurrent jobs for the same user
// are resolved by the repository's version check: on conflict the profile
// is re-read and the append replayed on the fresh history, so no session
// is ever lost.
func (w *Worker) persist(ctx context.Context, payload model.JobPayload, session model.Session) error {
	for attempt := 0; attempt < maxUpsertRetries; attempt++ {
		profile, err := w.profiles.Get(ctx, payload.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			profile = &model.UserProfile{UserID: payload.UserID}
		} else if err != nil {
			return err
		}

		profile.ApplyInfo(payload.UserProfile)
		profile.SessionHistory = append(profile.SessionHistory, session)
		model.RecomputeAverages(profile)

		err = w.profiles.Upsert(ctx, profile)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("gave up after %d profile version conflicts", maxUpsertRetries)
}

// cleanup deletes the job's audio objects. It only runs after persistence
// succeeded: deleting earlier would strand a queue redelivery, which must
// re-fetch the audio. Failures are logged, never escalated.
func (w *Worker) cleanup(ctx context.Context, log *logrus.Entry, payload model.JobPayload) {
	paths := payload.StoragePaths()
	if len(paths) == 0 {
		return
	}
	if err := w.store.Delete(ctx, paths); err != nil {
		log.WithError(err).WithField("stage", "cleaning_up").Warn("Audio cleanup failed, leaving objects behind")
		return
	}
	log.WithFields(logrus.Fields{
		"stage":   "cleaning_up",
		"deleted": len(paths),
	}).Info("Deleted uploaded audio")
}
