package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeURIComponentMatchesJavaScript(t *testing.T) {
	cases := map[string]string{
		"hello":             "hello",
		"Hi there.":         "Hi%20there.",
		"a+b=c&d":           "a%2Bb%3Dc%26d",
		"it's (fine)!*~":    "it's%20(fine)!*~",
		"café":              "caf%C3%A9",
		"line\nbreak":       "line%0Abreak",
		"50% / 100":         "50%25%20%2F%20100",
		"emoji 🎉":           "emoji%20%F0%9F%8E%89",
	}

	for in, want := range cases {
		assert.Equal(t, want, EncodeURIComponent(in), "input %q", in)
	}
}

func TestEncodeURIComponentRoundTrip(t *testing.T) {
	inputs := []string{"", "Hi there.", "¿Qué tal? 你好, 世界", "a+b", "tab\tand\r\nnewline"}

	for _, in := range inputs {
		encoded := EncodeURIComponent(in)
		decoded, err := url.PathUnescape(encoded)
		require.NoError(t, err)
		assert.Equal(t, in, decoded)
	}
}
