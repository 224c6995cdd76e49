package voice

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victorugws/swift/internal/model/conversation"
	voicesvc "github.com/Victorugws/swift/internal/service/voice"
)

type formPart struct {
	name     string
	value    string
	filename string
	data     []byte
}

func textPart(name, value string) formPart { return formPart{name: name, value: value} }

func filePart(name, filename string, data []byte) formPart {
	return formPart{name: name, filename: filename, data: data}
}

func multipartRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, mw.WriteField(p.name, p.value))
			continue
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+p.name+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", "audio/webm")
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestParseRequestText(t *testing.T) {
	req := multipartRequest(t,
		textPart("input", "hello"),
		textPart("message", `{"role":"user","content":"hi","latency":321}`),
		textPart("message", `{"role":"assistant","content":""}`),
	)

	input, history, err := ParseRequest(req, 1<<20)
	require.NoError(t, err)

	assert.False(t, input.IsAudio())
	assert.Equal(t, "hello", input.Text)
	assert.Equal(t, []conversation.Turn{
		{Role: conversation.RoleUser, Content: "hi"},
		{Role: conversation.RoleAssistant, Content: ""},
	}, history)
}

func TestParseRequestAudio(t *testing.T) {
	req := multipartRequest(t, filePart("input", "input.webm", []byte{0x1a, 0x45, 0xdf, 0xa3}))

	input, history, err := ParseRequest(req, 1<<20)
	require.NoError(t, err)

	assert.True(t, input.IsAudio())
	assert.Equal(t, []byte{0x1a, 0x45, 0xdf, 0xa3}, input.Audio)
	assert.Equal(t, "input.webm", input.Filename)
	assert.Equal(t, "audio/webm", input.ContentType)
	assert.Empty(t, history)
}

func TestParseRequestRejects(t *testing.T) {
	cases := map[string]*http.Request{
		"missing input":       multipartRequest(t, textPart("message", `{"role":"user","content":"hi"}`)),
		"empty text":          multipartRequest(t, textPart("input", "")),
		"empty file":          multipartRequest(t, filePart("input", "a.webm", nil)),
		"text and file":       multipartRequest(t, textPart("input", "hi"), filePart("input", "a.webm", []byte{1})),
		"two texts":           multipartRequest(t, textPart("input", "a"), textPart("input", "b")),
		"bad role":            multipartRequest(t, textPart("input", "hi"), textPart("message", `{"role":"system","content":"x"}`)),
		"missing content":     multipartRequest(t, textPart("input", "hi"), textPart("message", `{"role":"user"}`)),
		"null content":        multipartRequest(t, textPart("input", "hi"), textPart("message", `{"role":"user","content":null}`)),
		"numeric content":     multipartRequest(t, textPart("input", "hi"), textPart("message", `{"role":"user","content":5}`)),
		"not json":            multipartRequest(t, textPart("input", "hi"), textPart("message", `role=user`)),
		"one bad of many":     multipartRequest(t, textPart("input", "hi"), textPart("message", `{"role":"user","content":"a"}`), textPart("message", `[]`)),
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseRequest(req, 1<<20)
			assert.True(t, errors.Is(err, voicesvc.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestParseRequestRejectsNonMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"input":"hi"}`))
	req.Header.Set("Content-Type", "application/json")

	_, _, err := ParseRequest(req, 1<<20)
	assert.True(t, errors.Is(err, voicesvc.ErrInvalidRequest))
}

func TestParseRequestRejectsOversizedBody(t *testing.T) {
	req := multipartRequest(t, filePart("input", "a.webm", bytes.Repeat([]byte{1}, 4096)))

	_, _, err := ParseRequest(req, 1024)
	assert.True(t, errors.Is(err, voicesvc.ErrInvalidRequest))
}
