package pipeline

import (
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"moodmusic/metadata"
	"moodmusic/model"
)

// MaxUploadBytes bounds image and voice uploads.
const MaxUploadBytes = 25 << 20

// RegisterRoutes mounts the service's endpoints on r.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/predict-emotion", s.PostPredictEmotion)
	r.POST("/predict-voice-emotion", s.PostPredictVoiceEmotion)
	r.POST("/generate-music", s.PostGenerateMusic)
	r.POST("/regenerate-music", s.PostRegenerateMusic)
	r.POST("/save-liked-track", s.PostSaveLikedTrack)
	r.GET("/get-liked-tracks", s.GetLikedTracks)
	r.GET("/get-tracks", s.GetTracks)
	r.POST("/delete-track", s.PostDeleteTrack)
}

// abortWithError writes {"error": msg} with the status err maps to.
func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(httpStatus(err), gin.H{"error": err.Error()})
}

// PostPredictEmotion handles: POST /predict-emotion
//
// Request: multipart form, field "image".
//
// Response:
//
//   - 200: {"emotion": "Happy", "confidence": 0.92}
//   - 400: {"error": "..."}: no image
//   - 500: {"error": "..."}: undecodable image or model failure
func (s *Service) PostPredictEmotion(c *gin.Context) {
	raw, err := formFileBytes(c, "image")
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := s.ClassifyImage(c.Request.Context(), raw)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type PredictVoiceEmotionResponse struct {
	SpeechText   string `json:"speech_text"`
	FinalEmotion string `json:"final_emotion"`
}

// PostPredictVoiceEmotion handles: POST /predict-voice-emotion
//
// Request: multipart form, field "file".
//
// Response:
//
//   - 200: {"speech_text": "...", "final_emotion": "Happy"}
//   - 400: {"error": "..."}: no file
//   - 500: {"error": "..."}: transcription failed
func (s *Service) PostPredictVoiceEmotion(c *gin.Context) {
	raw, err := formFileBytes(c, "file")
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := s.ClassifyVoice(c.Request.Context(), raw)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PredictVoiceEmotionResponse{
		SpeechText:   result.Transcript,
		FinalEmotion: result.Label.String(),
	})
}

type GenerateMusicRequest struct {
	Emotion string `json:"emotion"`
}

type GenerateMusicResponse struct {
	Emotion  string `json:"emotion"`
	Prompt   string `json:"prompt"`
	AudioURL string `json:"audio_url"`
}

// PostGenerateMusic handles: POST /generate-music
//
// Request: {"emotion": "Happy"}
//
// Response:
//
//   - 200: {"emotion": "Happy", "prompt": "...", "audio_url": "/static/generated/track_<uuid>.wav"}
//   - 400: {"error": "..."}: invalid emotion
//   - 500: {"error": "..."}: synthesis, storage or catalog failure
func (s *Service) PostGenerateMusic(c *gin.Context) {
	var req GenerateMusicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidWrap(err, "bad request body"))
		return
	}

	track, err := s.Generate(c.Request.Context(), req.Emotion)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateMusicResponse{
		Emotion:  track.Emotion,
		Prompt:   track.Prompt,
		AudioURL: track.AudioURL,
	})
}

// RegenerateMusicRequest takes variation as any json number, so 2.0, 1e3
// or a value beyond int range is clamped like any other level.
type RegenerateMusicRequest struct {
	Emotion   string  `json:"emotion"`
	Variation float64 `json:"variation"`
}

type RegenerateMusicResponse struct {
	Emotion   string `json:"emotion"`
	Variation int    `json:"variation"`
	AudioURL  string `json:"audio_url"`
}

// PostRegenerateMusic handles: POST /regenerate-music
//
// Request: {"emotion": "Happy", "variation": 2}. variation defaults to 0
// and is clamped to [0, 3].
//
// Response:
//
//   - 200: {"emotion": "Happy", "variation": 2, "audio_url": "..."}
//   - 400: {"error": "..."}: missing or invalid emotion
//   - 500: {"error": "..."}: synthesis (including an invalid response), storage or catalog failure
func (s *Service) PostRegenerateMusic(c *gin.Context) {
	var req RegenerateMusicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidWrap(err, "bad request body"))
		return
	}

	track, err := s.Regenerate(c.Request.Context(), req.Emotion, variationLevel(req.Variation))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, RegenerateMusicResponse{
		Emotion:   track.Emotion,
		Variation: track.Variation,
		AudioURL:  track.AudioURL,
	})
}

type SaveLikedTrackRequest struct {
	Track *struct {
		Title    string `json:"title"`
		Emotion  string `json:"emotion"`
		AudioURL string `json:"audio_url"`
	} `json:"track"`
}

// PostSaveLikedTrack handles: POST /save-liked-track
//
// Request: {"track": {"title": "...", "emotion": "Happy", "audio_url": "..."}}
//
// Response:
//
//   - 200: {"status": "saved"}
//   - 400: {"error": "..."}: missing or invalid track
//   - 500: {"error": "..."}: catalog failure
func (s *Service) PostSaveLikedTrack(c *gin.Context) {
	var req SaveLikedTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidWrap(err, "bad request body"))
		return
	}
	if req.Track == nil {
		abortWithError(c, invalidf("track is required"))
		return
	}

	_, err := s.Like(c.Request.Context(), metadata.LikedTrack{
		Title:    req.Track.Title,
		Emotion:  req.Track.Emotion,
		AudioURL: req.Track.AudioURL,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// GetLikedTracks handles: GET /get-liked-tracks
//
// Response:
//
//   - 200: [{track}, ...]
//   - 500: {"error": "..."}
func (s *Service) GetLikedTracks(c *gin.Context) {
	tracks, err := s.ListLiked(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracks)
}

// GetTracks handles: GET /get-tracks
//
// Response:
//
//   - 200: [{track}, ...], newest first
//   - 500: {"error": "..."}
func (s *Service) GetTracks(c *gin.Context) {
	tracks, err := s.ListGenerated(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracks)
}

type DeleteTrackRequest struct {
	AudioURL string `json:"audio_url"`
}

// PostDeleteTrack handles: POST /delete-track
//
// Request: {"audio_url": "..."}, absolute or store-relative.
//
// Response:
//
//   - 200: {"status": "deleted"}
//   - 400: {"error": "..."}: no audio_url
//   - 404: {"status": "not_found"}
//   - 500: {"error": "..."}
func (s *Service) PostDeleteTrack(c *gin.Context) {
	var req DeleteTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidWrap(err, "bad request body"))
		return
	}

	err := s.Delete(c.Request.Context(), req.AudioURL)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
	case err != nil:
		abortWithError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

// variationLevel truncates v toward zero, saturating at the bounds of
// the variation range.
func variationLevel(v float64) int {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= model.MaxVariation:
		return model.MaxVariation
	default:
		return int(v)
	}
}

// formFileBytes reads the uploaded file in field. A missing or empty
// file is a ValidationError.
func formFileBytes(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, invalidf("no %s uploaded", field)
		}
		return nil, invalidWrap(err, "bad upload")
	}
	if fh.Size > MaxUploadBytes {
		return nil, invalidf("%s is larger than %d bytes", field, MaxUploadBytes)
	}

	return readFileHeader(fh)
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(raw) == 0 {
		return nil, invalidf("uploaded %s is empty", fh.Filename)
	}
	return raw, nil
}

