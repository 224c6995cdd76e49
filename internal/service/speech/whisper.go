package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	speechmodel "github.com/Victorugws/swift/internal/model/speech"
)

// WhisperRecognizer transcribes with an OpenAI-compatible audio endpoint.
// In production that is Groq serving whisper-large-v3.
type WhisperRecognizer struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewWhisperRecognizer builds a recognizer from cfg.
func NewWhisperRecognizer(cfg *speechmodel.SpeechConfig, logger zerolog.Logger) (*WhisperRecognizer, error) {
	if strings.TrimSpace(cfg.GroqAPIKey) == "" {
		return nil, errors.New("whisper recognizer requires GROQ_API_KEY")
	}

	clientCfg := openai.DefaultConfig(cfg.GroqAPIKey)
	if cfg.GroqBaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.GroqBaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.WhisperModel
	if model == "" {
		model = "whisper-large-v3"
	}

	return &WhisperRecognizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger.With().Str("component", "whisper").Logger(),
	}, nil
}

// Recognize implements Recognizer.
func (r *WhisperRecognizer) Recognize(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	if len(req.Audio) == 0 {
		return nil, errors.New("whisper: no audio")
	}

	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		FilePath: uploadName(req),
		Reader:   bytes.NewReader(req.Audio),
		Format:   openai.AudioResponseFormatJSON,
		Language: whisperLanguage(req.Language),
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: transcription: %w", err)
	}

	r.logger.Debug().
		Str("request_id", req.RequestID).
		Int("bytes", len(req.Audio)).
		Int("chars", len(resp.Text)).
		Msg("transcribed")

	return &speechmodel.ASRResponse{
		RequestID: req.RequestID,
		Text:      resp.Text,
		Language:  resp.Language,
		Duration:  int64(resp.Duration * 1000),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// The endpoint sniffs the container from the file extension.
func uploadName(req *speechmodel.ASRRequest) string {
	if name := strings.TrimSpace(req.Filename); strings.Contains(name, ".") {
		return name
	}
	format := req.Format
	if format == "" {
		format = "webm"
	}
	return "audio." + format
}

// Whisper wants ISO-639-1 codes; "en-US" becomes "en".
func whisperLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	base, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(base)
}
