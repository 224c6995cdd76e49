package voice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Victorugws/swift/internal/logging"
	"github.com/Victorugws/swift/internal/metrics"
	"github.com/Victorugws/swift/internal/service/ambient"
	"github.com/Victorugws/swift/internal/service/messagelog"
	voicesvc "github.com/Victorugws/swift/internal/service/voice"
	"github.com/Victorugws/swift/pkg/utils"
)

// Response headers carrying the percent-encoded texts.
const (
	TranscriptHeader = "X-Transcript"
	ResponseHeader   = "X-Response"
)

const streamChunkSize = 32 << 10

// Processor runs the voice pipeline.
type Processor interface {
	Process(ctx context.Context, req voicesvc.Request, pending *messagelog.Pending) (*voicesvc.Result, error)
}

// Handler serves the voice endpoint.
type Handler struct {
	pipeline Processor
	headers  ambient.HeaderSet
	maxBytes int64
	logger   zerolog.Logger
}

// New 创建语音处理器
func New(pipeline Processor, maxBytes int64, logger zerolog.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		headers:  ambient.DefaultHeaders,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "voice_handler").Logger(),
	}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleVoice)
	r.Get("/health", h.HandleHealth)
}

// HandleVoice runs one request through the pipeline and streams the reply audio.
func (h *Handler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromRequest(h.logger, r)

	// Log writes started by the pipeline finish before the handler returns.
	pending := messagelog.NewPending()
	defer pending.Wait()

	input, history, err := ParseRequest(r, h.maxBytes)
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	result, err := h.pipeline.Process(r.Context(), voicesvc.Request{
		Input:         input,
		History:       history,
		Authorization: r.Header.Get("Authorization"),
		Hints:         h.headers.FromHeaders(r.Header),
	}, pending)
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	metrics.Requests.WithLabelValues(voicesvc.Outcome(nil)).Inc()
	h.stream(w, result, logger)
}

// stream writes the audio as it arrives, flushing after every chunk.
func (h *Handler) stream(w http.ResponseWriter, result *voicesvc.Result, logger zerolog.Logger) {
	defer result.Audio.Close()

	header := w.Header()
	header.Set("Content-Type", "application/octet-stream")
	header.Set(TranscriptHeader, utils.EncodeURIComponent(result.Transcript))
	header.Set(ResponseHeader, utils.EncodeURIComponent(result.Reply))
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	rc := http.NewResponseController(w)
	buf := make([]byte, streamChunkSize)
	var written int64

	for {
		n, err := result.Audio.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				logger.Debug().Err(werr).Int64("bytes", written).Msg("client went away during audio stream")
				return
			}
			written += int64(n)
			_ = rc.Flush()
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Int64("bytes", written).Msg("audio stream interrupted")
			return
		}
	}

	elapsed := metrics.ObserveStage("stream", start)
	logger.Debug().
		Str("stage", "stream").
		Dur("elapsed", elapsed).
		Int64("bytes", written).
		Str("user_id", result.UserID).
		Bool("identity_fallback", result.IdentityFallback).
		Msg("stage finished")
}

func (h *Handler) fail(w http.ResponseWriter, logger zerolog.Logger, err error) {
	outcome := voicesvc.Outcome(err)
	metrics.Requests.WithLabelValues(outcome).Inc()

	status, message := StatusFor(err)
	event := logger.Info()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Str("outcome", outcome).Int("status", status).Msg("voice request failed")

	utils.RespondText(w, status, message)
}

// StatusFor maps a pipeline error to the status and the short message shown
// to the caller. Upstream diagnostics never reach the message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, voicesvc.ErrInvalidRequest):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, voicesvc.ErrInvalidAudio):
		return http.StatusBadRequest, "Invalid audio"
	case errors.Is(err, voicesvc.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests. Please try again later."
	case errors.Is(err, voicesvc.ErrEmptyCompletion):
		return http.StatusInternalServerError, "Invalid response"
	case errors.Is(err, voicesvc.ErrCompletionFailed):
		return http.StatusInternalServerError, "Completion failed"
	case errors.Is(err, voicesvc.ErrSynthesisFailed):
		return http.StatusInternalServerError, "Voice synthesis failed"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

// HandleHealth 健康检查
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "voice",
	})
}
