package voice

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/Victorugws/swift/internal/model/conversation"
	voicesvc "github.com/Victorugws/swift/internal/service/voice"
)

const (
	inputField   = "input"
	messageField = "message"
	// Parts above this spill to temporary files.
	maxFormMemory = 8 << 20
)

// ParseRequest validates the multipart body of a voice request. Any problem
// rejects the whole request with voicesvc.ErrInvalidRequest.
func ParseRequest(r *http.Request, maxBytes int64) (voicesvc.Input, []conversation.Turn, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return voicesvc.Input{}, nil, invalid("body must be multipart/form-data")
	}

	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return voicesvc.Input{}, nil, invalid("parse multipart form: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	input, err := parseInput(r.MultipartForm)
	if err != nil {
		return voicesvc.Input{}, nil, err
	}

	history, err := parseHistory(r.MultipartForm.Value[messageField])
	if err != nil {
		return voicesvc.Input{}, nil, err
	}
	return input, history, nil
}

// Empty text values and zero-byte files count as absent.
func parseInput(form *multipart.Form) (voicesvc.Input, error) {
	var texts []string
	for _, v := range form.Value[inputField] {
		if v != "" {
			texts = append(texts, v)
		}
	}
	var files []*multipart.FileHeader
	for _, fh := range form.File[inputField] {
		if fh.Size > 0 {
			files = append(files, fh)
		}
	}

	switch {
	case len(texts)+len(files) == 0:
		return voicesvc.Input{}, invalid("input is required")
	case len(texts)+len(files) > 1:
		return voicesvc.Input{}, invalid("input must be a single text value or file")
	case len(texts) == 1:
		return voicesvc.TextInput(texts[0]), nil
	}

	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return voicesvc.Input{}, invalid("open input file: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return voicesvc.Input{}, invalid("read input file: %v", err)
	}
	return voicesvc.AudioInput(data, fh.Filename, fh.Header.Get("Content-Type")), nil
}

// wireTurn uses pointers so a missing or null field can be told apart from
// an empty string. Unknown fields such as the client's latency are ignored.
type wireTurn struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

func parseHistory(values []string) ([]conversation.Turn, error) {
	history := make([]conversation.Turn, 0, len(values))
	for i, raw := range values {
		var wt wireTurn
		if err := json.Unmarshal([]byte(raw), &wt); err != nil {
			return nil, invalid("message %d: %v", i, err)
		}
		if wt.Role == nil || wt.Content == nil {
			return nil, invalid("message %d: role and content are required", i)
		}
		role := conversation.Role(*wt.Role)
		if !role.Valid() {
			return nil, invalid("message %d: unknown role %q", i, *wt.Role)
		}
		history = append(history, conversation.Turn{Role: role, Content: *wt.Content})
	}
	return history, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", voicesvc.ErrInvalidRequest, fmt.Sprintf(format, args...))
}
