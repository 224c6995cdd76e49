package speech

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Volcengine big-model ASR frames: a 4-byte header, an optional sequence
// number, a payload size and the payload. All integers are big endian.

const protocolVersion = 0b0001

// MessageType is the high nibble of the second header byte.
type MessageType uint8

const (
	FullClientRequest  MessageType = 0b0001
	AudioOnlyRequest   MessageType = 0b0010
	FullServerResponse MessageType = 0b1001
	ServerAck          MessageType = 0b1011
	ServerError        MessageType = 0b1111
)

// MessageFlags is the low nibble of the second header byte.
type MessageFlags uint8

const (
	NoSequence       MessageFlags = 0b0000
	PositiveSequence MessageFlags = 0b0001
	LastNoSequence   MessageFlags = 0b0010
	NegativeSequence MessageFlags = 0b0011
)

// Serialization is the high nibble of the third header byte.
type Serialization uint8

const (
	RawSerialization  Serialization = 0b0000
	JSONSerialization Serialization = 0b0001
)

// Compression is the low nibble of the third header byte.
type Compression uint8

const (
	NoCompression   Compression = 0b0000
	GzipCompression Compression = 0b0001
)

// Header is the fixed frame prefix.
type Header struct {
	Type          MessageType
	Flags         MessageFlags
	Serialization Serialization
	Compression   Compression
	// Size counts 4-byte words; servers may send extension words we skip.
	Size uint8
}

// Frame is one websocket binary message.
type Frame struct {
	Header    Header
	Sequence  int32
	ErrorCode uint32
	Payload   []byte
}

func (f *Frame) hasSequence() bool {
	flags := f.Header.Flags & 0b0011
	return flags == PositiveSequence || flags == NegativeSequence
}

// IsLast reports whether the frame closes the stream.
func (f *Frame) IsLast() bool {
	flags := f.Header.Flags & 0b0011
	return flags == LastNoSequence || flags == NegativeSequence
}

// MarshalBinary encodes the frame.
func (f *Frame) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(12 + len(f.Payload))

	buf.WriteByte(protocolVersion<<4 | 0b0001)
	buf.WriteByte(uint8(f.Header.Type)<<4 | uint8(f.Header.Flags))
	buf.WriteByte(uint8(f.Header.Serialization)<<4 | uint8(f.Header.Compression))
	buf.WriteByte(0)

	word := make([]byte, 4)
	if f.hasSequence() {
		binary.BigEndian.PutUint32(word, uint32(f.Sequence))
		buf.Write(word)
	}
	if f.Header.Type == ServerError {
		binary.BigEndian.PutUint32(word, f.ErrorCode)
		buf.Write(word)
	}
	binary.BigEndian.PutUint32(word, uint32(len(f.Payload)))
	buf.Write(word)
	buf.Write(f.Payload)

	return buf.Bytes(), nil
}

// DecodeFrame reads one frame from r.
func DecodeFrame(r io.Reader) (*Frame, error) {
	head := make([]byte, 4)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if version := head[0] >> 4; version != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version %d", version)
	}

	f := &Frame{Header: Header{
		Size:          head[0] & 0x0F,
		Type:          MessageType(head[1] >> 4),
		Flags:         MessageFlags(head[1] & 0x0F),
		Serialization: Serialization(head[2] >> 4),
		Compression:   Compression(head[2] & 0x0F),
	}}

	if extra := int(f.Header.Size)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return nil, fmt.Errorf("read header extension: %w", err)
		}
	}

	if f.hasSequence() {
		if err := binary.Read(r, binary.BigEndian, &f.Sequence); err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
	}
	if f.Header.Type == ServerError {
		if err := binary.Read(r, binary.BigEndian, &f.ErrorCode); err != nil {
			return nil, fmt.Errorf("read error code: %w", err)
		}
	}

	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, fmt.Errorf("read payload size: %w", err)
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, fmt.Errorf("read payload (%d bytes): %w", size, err)
		}
	}
	return f, nil
}

// newConfigFrame carries the JSON session parameters.
func newConfigFrame(payload []byte) *Frame {
	return &Frame{
		Header: Header{
			Type:          FullClientRequest,
			Flags:         NoSequence,
			Serialization: JSONSerialization,
			Compression:   GzipCompression,
		},
		Payload: payload,
	}
}

// newAudioFrame carries one audio chunk. The final chunk has its sequence
// negated.
func newAudioFrame(chunk []byte, sequence int32, last bool) *Frame {
	flags := PositiveSequence
	if last {
		flags = NegativeSequence
		sequence = -sequence
	}
	return &Frame{
		Header: Header{
			Type:          AudioOnlyRequest,
			Flags:         flags,
			Serialization: RawSerialization,
			Compression:   GzipCompression,
		},
		Sequence: sequence,
		Payload:  chunk,
	}
}
