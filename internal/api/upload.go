package api

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
	"github.com/Sushanta-Pal/InterViewPIP/internal/storage"
	"github.com/Sushanta-Pal/InterViewPIP/internal/utils"
)

const maxAudioBytes = 25 * 1024 * 1024

var allowedAudioExts = []string{".m4a", ".mp3", ".wav", ".aac", ".ogg", ".webm", ".caf", ".aiff", ".aif"}

// uploadRecording stores one captured audio segment and returns its
// AudioReference. The capture client uploads task i before moving on to
// task i+1, so the references it assembles stay in task order.
func (s *Server) uploadRecording(c *gin.Context) {
	userID := c.GetString(userIDKey)

	file, err := c.FormFile("audio_file")
	if err != nil {
		// Try alternative field names
		if file, err = c.FormFile("audio"); err != nil {
			if file, err = c.FormFile("file"); err != nil {
				utils.Error(c, http.StatusBadRequest, "audio_file is required")
				return
			}
		}
	}

	if err := validateAudioFile(file); err != nil {
		utils.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	section := c.PostForm("section")
	if section != "reading" && section != "repetition" {
		utils.Error(c, http.StatusBadRequest, "section must be reading or repetition")
		return
	}
	index := c.DefaultPostForm("index", "0")
	originalText := c.PostForm("original_text")

	object, err := s.storeAudio(c, userID, section, index, file)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to store audio")
		utils.Error(c, http.StatusInternalServerError, "failed to store audio file")
		return
	}

	utils.Success(c, gin.H{
		"url":          object.URL,
		"path":         object.Path,
		"originalText": originalText,
	})
}

// normalizeMultipart turns the multipart submission form into the canonical
// JSON shape: a `results` JSON field plus reading_audio_<i> and
// repetition_audio_<i> file parts, which are uploaded server-side first.
func (s *Server) normalizeMultipart(c *gin.Context, userID string) (*analyzeRequest, error) {
	var results struct {
		UserProfile   model.UserProfileInfo       `json:"userProfile"`
		Comprehension []model.ComprehensionResult `json:"comprehension"`
		Reading       []struct {
			OriginalText string `json:"originalText"`
		} `json:"reading"`
		Repetition []struct {
			OriginalText string `json:"originalText"`
		} `json:"repetition"`
	}
	if err := json.Unmarshal([]byte(c.PostForm("results")), &results); err != nil {
		return nil, fmt.Errorf("results field is not valid JSON: %w", err)
	}

	req := &analyzeRequest{UserProfile: results.UserProfile}
	req.AllResults.Comprehension = results.Comprehension

	for i, task := range results.Reading {
		ref, err := s.uploadFormAudio(c, userID, "reading", i, task.OriginalText)
		if err != nil {
			return nil, err
		}
		req.ReadingAudio = append(req.ReadingAudio, ref)
	}
	for i, task := range results.Repetition {
		ref, err := s.uploadFormAudio(c, userID, "repetition", i, task.OriginalText)
		if err != nil {
			return nil, err
		}
		req.RepetitionAudio = append(req.RepetitionAudio, ref)
	}
	return req, nil
}

func (s *Server) uploadFormAudio(c *gin.Context, userID, section string, index int, originalText string) (model.AudioReference, error) {
	file, err := c.FormFile(fmt.Sprintf("%s_audio_%d", section, index))
	if err != nil {
		return model.AudioReference{}, fmt.Errorf("missing %s audio for task %d", section, index)
	}
	if err := validateAudioFile(file); err != nil {
		return model.AudioReference{}, err
	}
	object, err := s.storeAudio(c, userID, section, fmt.Sprint(index), file)
	if err != nil {
		return model.AudioReference{}, fmt.Errorf("failed to store %s audio %d: %w", section, index, err)
	}
	return model.AudioReference{
		URL:          object.URL,
		StoragePath:  object.Path,
		OriginalText: originalText,
	}, nil
}

func (s *Server) storeAudio(c *gin.Context, userID, section, index string, file *multipart.FileHeader) (storage.Object, error) {
	src, err := file.Open()
	if err != nil {
		return storage.Object{}, err
	}
	defer src.Close()

	// Timestamped path so a retried section overwrites nothing.
	ext := strings.ToLower(filepath.Ext(file.Filename))
	path := fmt.Sprintf("%s/%s_%s_%d%s", userID, section, index, time.Now().UnixNano(), ext)

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.store.Upload(c.Request.Context(), path, src, contentType)
}

func validateAudioFile(file *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	valid := false
	for _, allowed := range allowedAudioExts {
		if ext == allowed {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unsupported audio format %q", ext)
	}
	if file.Size > maxAudioBytes {
		return fmt.Errorf("file size exceeds 25MB limit")
	}
	return nil
}
