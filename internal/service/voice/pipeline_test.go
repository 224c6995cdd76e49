package voice

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victorugws/swift/internal/model/conversation"
	speechmodel "github.com/Victorugws/swift/internal/model/speech"
	"github.com/Victorugws/swift/internal/service/ai"
	"github.com/Victorugws/swift/internal/service/ambient"
	"github.com/Victorugws/swift/internal/service/identity"
	"github.com/Victorugws/swift/internal/service/messagelog"
	"github.com/Victorugws/swift/internal/service/speech"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls atomic.Int32
	last  *speechmodel.ASRRequest
}

func (f *fakeRecognizer) Recognize(_ context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	f.calls.Add(1)
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &speechmodel.ASRResponse{Text: f.text}, nil
}

type fakeGenerator struct {
	reply   string
	err     error
	calls   int
	env     ambient.Context
	history []conversation.Turn
	query   string
}

func (f *fakeGenerator) GenerateReply(_ context.Context, env ambient.Context, history []conversation.Turn, transcript string) (string, error) {
	f.calls++
	f.env, f.history, f.query = env, history, transcript
	if f.err != nil {
		return "", f.err
	}
	if strings.TrimSpace(f.reply) == "" {
		return "", ai.ErrEmptyCompletion
	}
	return f.reply, nil
}

type fakeSynthesizer struct {
	audio []byte
	err   error
	calls int
	req   speechmodel.TTSRequest
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req speechmodel.TTSRequest) (io.ReadCloser, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(string(f.audio))), nil
}

type failingStore struct{ calls atomic.Int32 }

func (s *failingStore) Append(context.Context, conversation.LogRecord) error {
	s.calls.Add(1)
	return errors.New("insert failed")
}

type harness struct {
	recognizer  *fakeRecognizer
	generator   *fakeGenerator
	synthesizer *fakeSynthesizer
	store       *messagelog.MemoryStore
	lookups     atomic.Int32
	pipeline    *Pipeline
}

func newHarness(t *testing.T, store messagelog.Store) *harness {
	t.Helper()
	h := &harness{
		recognizer:  &fakeRecognizer{text: "hello"},
		generator:   &fakeGenerator{reply: "Hi there."},
		synthesizer: &fakeSynthesizer{audio: []byte{0, 0, 128, 63}},
	}
	if store == nil {
		h.store = messagelog.NewMemoryStore()
		store = h.store
	}

	provider := identity.ProviderFunc(func(_ context.Context, token string) (string, error) {
		h.lookups.Add(1)
		if token == "valid" {
			return "user-1", nil
		}
		return "", identity.ErrUnauthorized
	})

	now := func() time.Time { return time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC) }
	p, err := New(Deps{
		Context:     ambient.NewProvider(time.UTC, now),
		Recognizer:  h.recognizer,
		Identity:    identity.NewResolver(provider, zerolog.Nop()),
		Log:         messagelog.NewLogger(store, zerolog.Nop(), messagelog.WithClock(now)),
		Generator:   h.generator,
		Synthesizer: h.synthesizer,
		VoiceID:     "voice-1",
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	h.pipeline = p
	return h
}

func (h *harness) run(t *testing.T, req Request) (*Result, error) {
	t.Helper()
	pending := messagelog.NewPending()
	res, err := h.pipeline.Process(context.Background(), req, pending)
	pending.Wait()
	return res, err
}

func readAll(t *testing.T, r io.ReadCloser) []byte {
	t.Helper()
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func TestTextInputSucceeds(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.run(t, Request{Input: TextInput("hello")})
	require.NoError(t, err)

	assert.Equal(t, "hello", res.Transcript)
	assert.Equal(t, "Hi there.", res.Reply)
	assert.NotEmpty(t, readAll(t, res.Audio))
	assert.Equal(t, int32(0), h.recognizer.calls.Load())
	assert.Equal(t, "voice-1", h.synthesizer.req.VoiceID)
	assert.Equal(t, speechmodel.RawPCMFloat32, h.synthesizer.req.Format)
	assert.Equal(t, "Hi there.", h.synthesizer.req.Text)
}

func TestTextInputIsTrimmed(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.run(t, Request{Input: TextInput("  what time is it?\n")})
	require.NoError(t, err)
	assert.Equal(t, "what time is it?", res.Transcript)
	assert.Equal(t, "what time is it?", h.generator.query)
}

func TestBlankTextIsInvalidAudio(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.run(t, Request{Input: TextInput("   ")})
	assert.True(t, errors.Is(err, ErrInvalidAudio))
	assert.Equal(t, 0, h.generator.calls)
}

func TestAudioInputUsesRecognizer(t *testing.T) {
	h := newHarness(t, nil)
	h.recognizer.text = "  turn on the lights  "

	res, err := h.run(t, Request{Input: AudioInput([]byte("webm"), "input.webm", "audio/webm;codecs=opus")})
	require.NoError(t, err)

	assert.Equal(t, int32(1), h.recognizer.calls.Load())
	assert.Equal(t, "turn on the lights", res.Transcript)
	assert.Equal(t, "webm", h.recognizer.last.Format)
	assert.Equal(t, "input.webm", h.recognizer.last.Filename)
}

func TestEmptyTranscriptIsInvalidAudio(t *testing.T) {
	for _, rec := range []*fakeRecognizer{
		{text: ""},
		{text: " \t\n"},
		{err: errors.New("could not decode audio")},
	} {
		h := newHarness(t, nil)
		h.recognizer = rec
		h.pipeline.deps.Recognizer = rec

		_, err := h.run(t, Request{Input: AudioInput([]byte{1, 2, 3}, "a.webm", "audio/webm")})

		assert.True(t, errors.Is(err, ErrInvalidAudio))
		assert.Equal(t, 0, h.generator.calls)
		assert.Equal(t, 0, h.synthesizer.calls)
		assert.Empty(t, h.store.Records())
	}
}

func TestEmptyCompletionKeepsUserLog(t *testing.T) {
	h := newHarness(t, nil)
	h.generator.reply = ""

	_, err := h.run(t, Request{Input: TextInput("hello")})

	assert.True(t, errors.Is(err, ErrEmptyCompletion))
	assert.Equal(t, 0, h.synthesizer.calls)

	records := h.store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, conversation.RoleUser, records[0].Role)
	assert.Equal(t, "hello", records[0].Content)
}

func TestCompletionFailureAndRateLimit(t *testing.T) {
	h := newHarness(t, nil)
	h.generator.err = errors.New("connection reset")

	_, err := h.run(t, Request{Input: TextInput("hello")})
	assert.True(t, errors.Is(err, ErrCompletionFailed))
	assert.Equal(t, "completion_failed", Outcome(err))

	h.generator.err = errors.Join(ai.ErrRateLimited, errors.New("429"))
	_, err = h.run(t, Request{Input: TextInput("hello")})
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, 0, h.synthesizer.calls)
}

func TestSynthesisFailureLogsBothTurns(t *testing.T) {
	h := newHarness(t, nil)
	h.synthesizer.err = &speech.SynthesisError{Status: 402, Diagnostic: "credit limit reached for org_123"}

	_, err := h.run(t, Request{Input: TextInput("hello")})

	assert.True(t, errors.Is(err, ErrSynthesisFailed))
	records := h.store.Records()
	require.Len(t, records, 2)
	assert.Equal(t, conversation.RoleUser, records[0].Role)
	assert.Equal(t, conversation.RoleAssistant, records[1].Role)
	assert.Equal(t, conversation.SourceAssistant, records[1].Source)
	assert.Equal(t, "Hi there.", records[1].Content)
}

func TestLogFailuresDoNotChangeOutcome(t *testing.T) {
	store := &failingStore{}
	h := newHarness(t, store)

	res, err := h.run(t, Request{Input: TextInput("hello")})
	require.NoError(t, err)
	assert.Equal(t, "Hi there.", res.Reply)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestAnonymousWithoutCredential(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.run(t, Request{Input: TextInput("hello")})
	require.NoError(t, err)

	assert.Equal(t, int32(0), h.lookups.Load())
	assert.Equal(t, "anonymous", res.UserID)
	assert.False(t, res.IdentityFallback)
	for _, rec := range h.store.Records() {
		assert.Equal(t, "anonymous", rec.UserID)
	}
}

func TestIdentityResolution(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.run(t, Request{Input: TextInput("hello"), Authorization: "Bearer valid"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", res.UserID)
	assert.Equal(t, "user-1", h.store.ForUser("user-1")[0].UserID)

	res, err = h.run(t, Request{Input: TextInput("hello"), Authorization: "Bearer expired"})
	require.NoError(t, err)
	assert.Equal(t, "anonymous", res.UserID)
	assert.True(t, res.IdentityFallback)
}

func TestRepeatedCallsLogIndependently(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 2; i++ {
		_, err := h.run(t, Request{Input: TextInput("hello")})
		require.NoError(t, err)
	}
	assert.Len(t, h.store.Records(), 4)
}

func TestHistoryAndContextReachGenerator(t *testing.T) {
	h := newHarness(t, nil)
	history := []conversation.Turn{
		{Role: conversation.RoleUser, Content: "hi"},
		{Role: conversation.RoleAssistant, Content: "Hello!"},
	}

	_, err := h.run(t, Request{
		Input:   TextInput("where am I?"),
		History: history,
		Hints:   ambient.Hints{Country: "US", Region: "NY", City: "New York", Timezone: "America/New_York"},
	})
	require.NoError(t, err)

	assert.Equal(t, history, h.generator.history)
	assert.Equal(t, "New York, NY, US", h.generator.env.LocationLabel)
	assert.Equal(t, "1/2/2025, 10:04:05 AM", h.generator.env.LocalTime)
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestAudioFormat(t *testing.T) {
	assert.Equal(t, "webm", audioFormat(Input{ContentType: "audio/webm;codecs=opus"}))
	assert.Equal(t, "mp3", audioFormat(Input{ContentType: "audio/mpeg"}))
	assert.Equal(t, "wav", audioFormat(Input{ContentType: "audio/x-wav"}))
	assert.Equal(t, "", audioFormat(Input{ContentType: "application/octet-stream"}))
	assert.Equal(t, "", audioFormat(Input{}))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "invalid_request", Outcome(ErrInvalidRequest))
	assert.Equal(t, "synthesis_failed", Outcome(ErrSynthesisFailed))
	assert.Equal(t, "internal", Outcome(errors.New("x")))
}
