package speech

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []*Frame{
		newConfigFrame([]byte(`{"user":{}}`)),
		newAudioFrame([]byte{1, 2, 3}, 2, false),
		newAudioFrame([]byte{4}, 5, true),
		{Header: Header{Type: ServerError}, ErrorCode: 45000001, Payload: []byte("bad audio")},
	}

	for _, in := range cases {
		data, err := in.MarshalBinary()
		require.NoError(t, err)

		out, err := DecodeFrame(bytes.NewReader(data))
		require.NoError(t, err)

		assert.Equal(t, in.Header.Type, out.Header.Type)
		assert.Equal(t, in.Header.Flags, out.Header.Flags)
		assert.Equal(t, in.Header.Compression, out.Header.Compression)
		assert.Equal(t, in.Sequence, out.Sequence)
		assert.Equal(t, in.ErrorCode, out.ErrorCode)
		assert.Equal(t, in.Payload, out.Payload)
	}
}

func TestAudioFrameLastIsNegative(t *testing.T) {
	f := newAudioFrame(nil, 7, true)
	assert.Equal(t, int32(-7), f.Sequence)
	assert.True(t, f.IsLast())
	assert.False(t, newAudioFrame(nil, 7, false).IsLast())
}

func TestDecodeFrameSkipsHeaderExtension(t *testing.T) {
	data := []byte{
		0x12, 0x90, 0x10, 0x00, // version 1, size 2 words; full server response
		0xAA, 0xBB, 0xCC, 0xDD, // extension word
		0x00, 0x00, 0x00, 0x02, // payload size
		'o', 'k',
	}
	f, err := DecodeFrame(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FullServerResponse, f.Header.Type)
	assert.Equal(t, []byte("ok"), f.Payload)
}

func TestDecodeFrameRejectsVersion(t *testing.T) {
	_, err := DecodeFrame(bytes.NewReader([]byte{0x21, 0x90, 0x10, 0x00, 0, 0, 0, 0}))
	assert.Error(t, err)
}

func TestCompressionRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("swift "), 100)

	packed, err := compress(payload, GzipCompression)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(payload))

	unpacked, err := decompress(packed, GzipCompression)
	require.NoError(t, err)
	assert.Equal(t, payload, unpacked)

	_, err = compress(payload, Compression(0b1111))
	assert.Error(t, err)
}
