// Package voice composes the request pipeline: transcribe, identify, log,
// generate, log, synthesize.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Victorugws/swift/internal/logging"
	"github.com/Victorugws/swift/internal/metrics"
	"github.com/Victorugws/swift/internal/model/conversation"
	speechmodel "github.com/Victorugws/swift/internal/model/speech"
	"github.com/Victorugws/swift/internal/service/ambient"
	"github.com/Victorugws/swift/internal/service/identity"
	"github.com/Victorugws/swift/internal/service/messagelog"
	"github.com/Victorugws/swift/internal/service/speech"
)

// ContextProvider derives ambient context from request hints.
type ContextProvider interface {
	Resolve(h ambient.Hints) ambient.Context
}

// IdentityResolver maps an Authorization header to a caller.
type IdentityResolver interface {
	Resolve(ctx context.Context, authorization string) identity.Identity
}

// ReplyGenerator produces the assistant's answer.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, env ambient.Context, history []conversation.Turn, transcript string) (string, error)
}

// Deps are the collaborators a Pipeline needs. All are required.
type Deps struct {
	Context     ContextProvider
	Recognizer  speech.Recognizer
	Identity    IdentityResolver
	Log         *messagelog.Logger
	Generator   ReplyGenerator
	Synthesizer speech.Synthesizer
	// VoiceID and Language are passed through to the speech providers.
	VoiceID  string
	Language string
	Logger   zerolog.Logger
}

// Pipeline runs one request end to end. It holds no per-request state.
type Pipeline struct {
	deps   Deps
	logger zerolog.Logger
}

// New validates deps and returns a Pipeline.
func New(deps Deps) (*Pipeline, error) {
	switch {
	case deps.Context == nil:
		return nil, errors.New("voice: context provider is required")
	case deps.Recognizer == nil:
		return nil, errors.New("voice: recognizer is required")
	case deps.Identity == nil:
		return nil, errors.New("voice: identity resolver is required")
	case deps.Log == nil:
		return nil, errors.New("voice: message logger is required")
	case deps.Generator == nil:
		return nil, errors.New("voice: reply generator is required")
	case deps.Synthesizer == nil:
		return nil, errors.New("voice: synthesizer is required")
	}
	return &Pipeline{
		deps:   deps,
		logger: deps.Logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Result is a successful run. Audio is single-pass and must be closed.
type Result struct {
	Transcript       string
	Reply            string
	Audio            io.ReadCloser
	UserID           string
	IdentityFallback bool
}

type transcribed struct {
	transcript string
	env        ambient.Context
}

type identified struct {
	transcribed
	caller identity.Identity
}

type generated struct {
	identified
	reply string
}

type synthesized struct {
	generated
	audio io.ReadCloser
}

// Process runs the pipeline. Log writes are attached to pending; the caller
// waits on it before finishing the request.
func (p *Pipeline) Process(ctx context.Context, req Request, pending *messagelog.Pending) (*Result, error) {
	logger := logging.FromContext(p.logger, ctx)

	t, err := p.transcribe(ctx, req, logger)
	if err != nil {
		return nil, err
	}

	id := p.identify(ctx, req, t, logger)
	p.deps.Log.Submit(ctx, pending, p.deps.Log.NewRecord(id.caller.ID, conversation.RoleUser, id.transcript))

	g, err := p.generate(ctx, req, id, logger)
	if err != nil {
		return nil, err
	}
	p.deps.Log.Submit(ctx, pending, p.deps.Log.NewRecord(g.caller.ID, conversation.RoleAssistant, g.reply))

	s, err := p.synthesize(ctx, g, logger)
	if err != nil {
		return nil, err
	}

	return &Result{
		Transcript:       s.transcript,
		Reply:            s.reply,
		Audio:            s.audio,
		UserID:           s.caller.ID,
		IdentityFallback: s.caller.Failure != nil,
	}, nil
}

// transcribe resolves the ambient context and the transcript concurrently.
func (p *Pipeline) transcribe(ctx context.Context, req Request, logger zerolog.Logger) (transcribed, error) {
	start := time.Now()
	var out transcribed

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.env = p.deps.Context.Resolve(req.Hints)
		return nil
	})
	g.Go(func() error {
		text, ok := p.recognize(gctx, req.Input, logger)
		if !ok {
			return ErrInvalidAudio
		}
		out.transcript = text
		return nil
	})
	err := g.Wait()

	elapsed := metrics.ObserveStage("transcribe", start)
	logger.Debug().Str("stage", "transcribe").Dur("elapsed", elapsed).Bool("audio", req.Input.IsAudio()).Msg("stage finished")
	return out, err
}

// recognize returns false when there is no usable transcript.
func (p *Pipeline) recognize(ctx context.Context, in Input, logger zerolog.Logger) (string, bool) {
	if !in.IsAudio() {
		text := strings.TrimSpace(in.Text)
		return text, text != ""
	}

	resp, err := p.deps.Recognizer.Recognize(ctx, &speechmodel.ASRRequest{
		RequestID: logging.RequestIDFromContext(ctx),
		Audio:     in.Audio,
		Filename:  in.Filename,
		Format:    audioFormat(in),
		Language:  p.deps.Language,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("speech recognition failed")
		return "", false
	}
	if resp == nil {
		return "", false
	}
	text := strings.TrimSpace(resp.Text)
	return text, text != ""
}

func (p *Pipeline) identify(ctx context.Context, req Request, t transcribed, logger zerolog.Logger) identified {
	start := time.Now()
	caller := p.deps.Identity.Resolve(ctx, req.Authorization)
	elapsed := metrics.ObserveStage("identify", start)

	logger.Debug().Str("stage", "identify").Dur("elapsed", elapsed).Bool("anonymous", caller.Anonymous).Msg("stage finished")
	return identified{transcribed: t, caller: caller}
}

func (p *Pipeline) generate(ctx context.Context, req Request, id identified, logger zerolog.Logger) (generated, error) {
	start := time.Now()
	reply, err := p.deps.Generator.GenerateReply(ctx, id.env, req.History, id.transcript)
	elapsed := metrics.ObserveStage("complete", start)

	logger.Debug().Str("stage", "complete").Dur("elapsed", elapsed).Msg("stage finished")
	if err != nil {
		logger.Warn().Err(err).Msg("reply generation failed")
		return generated{}, completionError(err)
	}
	return generated{identified: id, reply: reply}, nil
}

func (p *Pipeline) synthesize(ctx context.Context, g generated, logger zerolog.Logger) (synthesized, error) {
	start := time.Now()
	audio, err := p.deps.Synthesizer.Synthesize(ctx, speechmodel.TTSRequest{
		Text:    g.reply,
		VoiceID: p.deps.VoiceID,
		Format:  speechmodel.RawPCMFloat32,
	})
	elapsed := metrics.ObserveStage("synthesize", start)
	logger.Debug().Str("stage", "synthesize").Dur("elapsed", elapsed).Msg("stage finished")

	if err != nil {
		var synthErr *speech.SynthesisError
		if errors.As(err, &synthErr) {
			logger.Error().Int("status", synthErr.Status).Str("diagnostic", synthErr.Diagnostic).Msg("synthesis rejected")
		} else {
			logger.Error().Err(err).Msg("synthesis request failed")
		}
		return synthesized{}, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	return synthesized{generated: g, audio: audio}, nil
}

// audioFormat maps the upload's content type to a short container name.
func audioFormat(in Input) string {
	mediaType, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil {
		return ""
	}
	_, sub, ok := strings.Cut(mediaType, "/")
	if !ok {
		return ""
	}
	switch sub {
	case "mpeg":
		return "mp3"
	case "x-wav", "wave":
		return "wav"
	case "octet-stream":
		return ""
	default:
		return sub
	}
}
