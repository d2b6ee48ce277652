package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/galanggg/inbound-whisper/internal/apperr"
	"github.com/galanggg/inbound-whisper/internal/store"
	"github.com/galanggg/inbound-whisper/internal/upload"
	"github.com/galanggg/inbound-whisper/internal/version"
	"github.com/galanggg/inbound-whisper/internal/whisper"
)

// Handler wires the upload receiver, model store and engine into HTTP
// endpoints. Each request runs receive → ensure → transcribe → respond
// strictly in sequence; cleanup happens after the terminal outcome
// regardless of success.
type Handler struct {
	store        *store.Store
	engine       whisper.Engine
	uploads      *upload.Receiver
	jobs         *semaphore.Weighted
	defaultModel string
	logger       *zap.Logger
}

// NewHandler builds a Handler. maxJobs bounds concurrently running
// transcription processes.
func NewHandler(st *store.Store, engine whisper.Engine, uploads *upload.Receiver, maxJobs int64, defaultModel string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxJobs <= 0 {
		maxJobs = 1
	}
	if defaultModel == "" {
		defaultModel = whisper.DefaultModel
	}
	return &Handler{
		store:        st,
		engine:       engine,
		uploads:      uploads,
		jobs:         semaphore.NewWeighted(maxJobs),
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Register mounts all routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.handleHealth)
	r.POST("/transcribe", h.handleTranscribe)
	r.GET("/models", h.handleModels)
	r.POST("/models/download", h.handleModelDownload)
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Resolve(),
	})
}

func (h *Handler) handleTranscribe(c *gin.Context) {
	// Admission control: reject instead of queueing so callers get an
	// immediate signal rather than a stalled connection.
	if !h.jobs.TryAcquire(1) {
		h.respondError(c, apperr.New(apperr.Busy, "transcription capacity exhausted, retry later"))
		return
	}
	defer h.jobs.Release(1)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		h.respondError(c, apperr.New(apperr.MissingInput, "audio file is required").WithCause(err))
		return
	}

	modelName := c.DefaultPostForm("model", h.defaultModel)
	language := c.DefaultPostForm("language", "auto")

	// Validate before persisting the upload so bad model names are
	// rejected without any disk writes.
	if err := h.store.Validate(modelName); err != nil {
		h.respondError(c, err)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, apperr.New(apperr.MissingInput, "uploaded audio is unreadable").WithCause(err))
		return
	}
	defer src.Close()

	audio, err := h.uploads.Save(src, fileHeader)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer h.uploads.Discard(audio, whisper.OutputPath(audio.Path))

	ctx := c.Request.Context()

	modelPath, err := h.store.Ensure(ctx, modelName)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("transcribing",
		zap.String("audio", audio.OriginalName),
		zap.String("model", modelName),
		zap.String("language", language),
	)

	transcript, err := h.engine.Transcribe(ctx, whisper.TranscriptionRequest{
		AudioPath: audio.Path,
		ModelPath: modelPath,
		Language:  language,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"transcription": transcript,
	})
}

func (h *Handler) handleModels(c *gin.Context) {
	models, err := h.store.Installed()
	if err != nil {
		h.respondError(c, apperr.New(apperr.Internal, "cannot list models directory").WithCause(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

func (h *Handler) handleModelDownload(c *gin.Context) {
	var req struct {
		Model string `json:"model" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.New(apperr.MissingInput, "model name is required").WithCause(err))
		return
	}

	if _, err := h.store.Ensure(c.Request.Context(), req.Model); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "model " + req.Model + " is available",
	})
}

// respondError maps any failure to its HTTP status and JSON body.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperr.As(err)

	fields := []zap.Field{
		zap.String("kind", string(appErr.Kind)),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	}
	if appErr.HTTPStatus() >= 500 {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}

	body := gin.H{
		"success": false,
		"error":   appErr.Message,
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	c.JSON(appErr.HTTPStatus(), body)
}
