package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Sushanta-Pal/InterViewPIP/internal/metrics"
	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
	"github.com/Sushanta-Pal/InterViewPIP/internal/queue"
	"github.com/Sushanta-Pal/InterViewPIP/internal/repository"
	"github.com/Sushanta-Pal/InterViewPIP/internal/storage"
	"github.com/Sushanta-Pal/InterViewPIP/internal/utils"
)

// Server holds the API's collaborators. It never writes to the profile
// store and never runs transcription or scoring; analysis always happens
// out-of-band in the worker.
type Server struct {
	logger    *logrus.Logger
	queue     queue.Queue
	profiles  repository.ProfileRepository
	store     storage.ObjectStore
	jwtSecret []byte
}

func NewServer(logger *logrus.Logger, q queue.Queue, profiles repository.ProfileRepository, store storage.ObjectStore, jwtSecret []byte) *Server {
	return &Server{
		logger:    logger,
		queue:     q,
		profiles:  profiles,
		store:     store,
		jwtSecret: jwtSecret,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1", Auth(s.jwtSecret))
	{
		v1.POST("/recordings", s.uploadRecording)
		v1.POST("/analyze", s.submitAnalysis)
		v1.GET("/session-result", s.sessionResult)
		v1.GET("/profile", s.getProfile)
	}
}

// healthCheck returns server health status
func (s *Server) healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "practice-analysis",
	})
}

// analyzeRequest is the JSON ingress body. The multipart variant is
// normalized into the same shape before validation.
type analyzeRequest struct {
	UserProfile model.UserProfileInfo `json:"userProfile"`
	AllResults  struct {
		Comprehension []model.ComprehensionResult `json:"comprehension"`
	} `json:"allResults"`
	ReadingAudio    []model.AudioReference `json:"readingAudio"`
	RepetitionAudio []model.AudioReference `json:"repetitionAudio"`
}

// submitAnalysis validates the payload shape and enqueues exactly one job.
// It responds 202 immediately; the client polls /session-result with the
// returned job id.
func (s *Server) submitAnalysis(c *gin.Context) {
	userID := c.GetString(userIDKey)

	var req *analyzeRequest
	var err error
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, err = s.normalizeMultipart(c, userID)
	} else {
		req = &analyzeRequest{}
		err = c.ShouldBindJSON(req)
	}
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	if req.UserProfile == (model.UserProfileInfo{}) {
		utils.Error(c, http.StatusBadRequest, "userProfile is required")
		return
	}
	if len(req.ReadingAudio) == 0 && len(req.RepetitionAudio) == 0 && len(req.AllResults.Comprehension) == 0 {
		utils.Error(c, http.StatusBadRequest, "results are required")
		return
	}

	payload := model.JobPayload{
		UserID:               userID,
		UserProfile:          req.UserProfile,
		ComprehensionResults: req.AllResults.Comprehension,
		ReadingAudio:         req.ReadingAudio,
		RepetitionAudio:      req.RepetitionAudio,
	}

	jobID, err := s.queue.Enqueue(c.Request.Context(), payload)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to enqueue analysis job")
		utils.Error(c, http.StatusInternalServerError, "failed to enqueue analysis job: "+err.Error())
		return
	}

	metrics.JobsEnqueued.Inc()
	utils.Accepted(c, gin.H{"jobId": jobID})
}

// sessionResult reports pending vs. completed for a submitted job. A
// missing profile or session is the normal in-flight state, never an
// error; sessions belonging to other users look identical to pending ones.
func (s *Server) sessionResult(c *gin.Context) {
	userID := c.GetString(userIDKey)
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		utils.Error(c, http.StatusBadRequest, "sessionId is required")
		return
	}

	profile, err := s.profiles.Get(c.Request.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		utils.Success(c, gin.H{"status": "pending"})
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to read user profile")
		utils.Error(c, http.StatusInternalServerError, "failed to read session result")
		return
	}

	for _, session := range profile.SessionHistory {
		if session.ID == sessionID {
			utils.Success(c, gin.H{
				"id":       session.ID,
				"date":     session.Date,
				"type":     session.Type,
				"score":    session.Score,
				"feedback": session.Feedback,
			})
			return
		}
	}
	utils.Success(c, gin.H{"status": "pending"})
}

// getProfile is the dashboard read of the caller's aggregate. A user who
// has never completed a session gets an empty profile, not an error.
func (s *Server) getProfile(c *gin.Context) {
	userID := c.GetString(userIDKey)

	profile, err := s.profiles.Get(c.Request.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		profile = &model.UserProfile{UserID: userID, SessionHistory: []model.Session{}}
	} else if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to read user profile")
		utils.Error(c, http.StatusInternalServerError, "failed to read profile")
		return
	}

	utils.Success(c, gin.H{"profile": profile})
}
