package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	speechmodel "github.com/Victorugws/swift/internal/model/speech"
)

const diagnosticLimit = 4 << 10

// SynthesisError is returned when the synthesizer answers with a non-2xx
// status. Diagnostic is the (truncated) upstream body and stays server-side.
type SynthesisError struct {
	Status     int
	Diagnostic string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("cartesia: status %d: %s", e.Status, e.Diagnostic)
}

// CartesiaSynthesizer streams speech from Cartesia's bytes endpoint.
type CartesiaSynthesizer struct {
	apiKey  string
	baseURL string
	version string
	model   string
	voiceID string
	client  *http.Client
	logger  zerolog.Logger
}

// NewCartesiaSynthesizer builds a synthesizer from cfg. No client timeout is
// set because the body is streamed to the caller; cancellation comes from ctx.
func NewCartesiaSynthesizer(cfg *speechmodel.SpeechConfig, logger zerolog.Logger) (*CartesiaSynthesizer, error) {
	if strings.TrimSpace(cfg.CartesiaAPIKey) == "" {
		return nil, errors.New("cartesia synthesizer requires CARTESIA_API_KEY")
	}
	return &CartesiaSynthesizer{
		apiKey:  cfg.CartesiaAPIKey,
		baseURL: strings.TrimRight(cfg.CartesiaBaseURL, "/"),
		version: cfg.CartesiaVersion,
		model:   cfg.CartesiaModel,
		voiceID: cfg.VoiceID,
		client:  &http.Client{},
		logger:  logger.With().Str("component", "cartesia").Logger(),
	}, nil
}

type cartesiaRequest struct {
	ModelID      string                   `json:"model_id"`
	Transcript   string                   `json:"transcript"`
	Voice        cartesiaVoice            `json:"voice"`
	OutputFormat speechmodel.OutputFormat `json:"output_format"`
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

// Synthesize returns the upstream audio body unread. The caller must close it.
func (s *CartesiaSynthesizer) Synthesize(ctx context.Context, req speechmodel.TTSRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(s.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("cartesia: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cartesia: create request: %w", err)
	}
	httpReq.Header.Set("Cartesia-Version", s.version)
	httpReq.Header.Set("X-API-Key", s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cartesia: request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		diagnostic, _ := io.ReadAll(io.LimitReader(resp.Body, diagnosticLimit))
		return nil, &SynthesisError{Status: resp.StatusCode, Diagnostic: strings.TrimSpace(string(diagnostic))}
	}
	return resp.Body, nil
}

func (s *CartesiaSynthesizer) buildRequest(req speechmodel.TTSRequest) cartesiaRequest {
	model := req.ModelID
	if model == "" {
		model = s.model
	}
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = s.voiceID
	}
	format := req.Format
	if format.Container == "" {
		format = speechmodel.RawPCMFloat32
	}
	return cartesiaRequest{
		ModelID:      model,
		Transcript:   req.Text,
		Voice:        cartesiaVoice{Mode: "id", ID: voiceID},
		OutputFormat: format,
	}
}
