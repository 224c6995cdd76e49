package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	speechmodel "github.com/Victorugws/swift/internal/model/speech"
)

// Recognizer turns a recorded clip into text.
type Recognizer interface {
	Recognize(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error)
}

// Synthesizer turns text into a stream of audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, req speechmodel.TTSRequest) (io.ReadCloser, error)
}

// Service bundles the configured recognizer and synthesizer.
type Service struct {
	Recognizer  Recognizer
	Synthesizer Synthesizer
}

// NewService builds the providers named by cfg.
func NewService(cfg *speechmodel.SpeechConfig, logger zerolog.Logger) (*Service, error) {
	recognizer, err := NewRecognizer(cfg, logger)
	if err != nil {
		return nil, err
	}
	synthesizer, err := NewCartesiaSynthesizer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Service{Recognizer: recognizer, Synthesizer: synthesizer}, nil
}

// NewRecognizer builds the recognizer selected by cfg.STTProvider.
func NewRecognizer(cfg *speechmodel.SpeechConfig, logger zerolog.Logger) (Recognizer, error) {
	switch cfg.STTProvider {
	case "volcengine":
		if _, _, err := resolveCredentials(cfg); err != nil {
			return nil, err
		}
		return NewVolcengineRecognizer(cfg, logger), nil
	case "groq", "":
		recognizer, err := NewWhisperRecognizer(cfg, logger)
		if err != nil {
			return nil, err
		}
		return recognizer, nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.STTProvider)
	}
}
