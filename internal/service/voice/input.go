package voice

import (
	"github.com/Victorugws/swift/internal/model/conversation"
	"github.com/Victorugws/swift/internal/service/ambient"
)

// Input is the utterance: typed text or a recorded clip, never both.
type Input struct {
	Text        string
	Audio       []byte
	Filename    string
	ContentType string
}

// TextInput wraps typed text.
func TextInput(text string) Input {
	return Input{Text: text}
}

// AudioInput wraps a recorded clip.
func AudioInput(data []byte, filename, contentType string) Input {
	return Input{Audio: data, Filename: filename, ContentType: contentType}
}

// IsAudio reports whether the input must go through speech recognition.
func (in Input) IsAudio() bool {
	return len(in.Audio) > 0
}

// Request is one validated call into the pipeline.
type Request struct {
	Input   Input
	History []conversation.Turn
	// Authorization is the raw header value; empty when absent.
	Authorization string
	Hints         ambient.Hints
}
