package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Victorugws/swift/internal/logging"
	"github.com/Victorugws/swift/internal/model/conversation"
)

type askOptions struct {
	server  string
	text    string
	audio   string
	history []string
	token   string
	out     string
}

func newAskCmd(withTimeout func(*cobra.Command) (context.Context, context.CancelFunc), logger zerolog.Logger) *cobra.Command {
	opts := askOptions{}

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Send one turn to a running server and save the reply audio",
		Long: `Send text (--text) or an audio file (--audio) to the voice endpoint.
Earlier turns are passed with --turn role=content, repeatable.
The reply is raw 32-bit float PCM at 24 kHz.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			return runAsk(ctx, opts, logger)
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:8080/api", "voice endpoint URL")
	cmd.Flags().StringVar(&opts.text, "text", "", "text input")
	cmd.Flags().StringVar(&opts.audio, "audio", "", "audio file input")
	cmd.Flags().StringArrayVar(&opts.history, "turn", nil, "history turn as role=content")
	cmd.Flags().StringVar(&opts.token, "token", "", "bearer token")
	cmd.Flags().StringVar(&opts.out, "out", "", "output file (default reply-<unix>.pcm)")
	cmd.MarkFlagsMutuallyExclusive("text", "audio")
	cmd.MarkFlagsOneRequired("text", "audio")

	return cmd
}

func runAsk(ctx context.Context, opts askOptions, logger zerolog.Logger) error {
	history, err := parseTurns(opts.history)
	if err != nil {
		return err
	}

	var audio []byte
	if opts.audio != "" {
		audio, err = os.ReadFile(opts.audio)
		if err != nil {
			return fmt.Errorf("读取音频文件失败: %w", err)
		}
	}

	body, contentType, err := buildAskBody(opts.text, filepath.Base(opts.audio), audio, history)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.server, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	requestID := uuid.NewString()
	req.Header.Set(logging.VercelIDHeader, requestID)
	if opts.token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.token)
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}

	transcript, _ := url.PathUnescape(resp.Header.Get("X-Transcript"))
	reply, _ := url.PathUnescape(resp.Header.Get("X-Response"))
	logger.Info().
		Str("request_id", requestID).
		Str("transcript", transcript).
		Str("reply", reply).
		Dur("headers_after", time.Since(start)).
		Msg("reply received")

	out := opts.out
	if out == "" {
		out = fmt.Sprintf("reply-%d.pcm", time.Now().Unix())
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return fmt.Errorf("写入音频文件失败: %w", err)
	}

	logger.Info().
		Str("file", out).
		Int64("bytes", n).
		Dur("elapsed", time.Since(start)).
		Msg("audio saved")
	return nil
}

// parseTurns reads role=content pairs.
func parseTurns(raw []string) ([]conversation.Turn, error) {
	turns := make([]conversation.Turn, 0, len(raw))
	for _, item := range raw {
		role, content, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --turn %q, want role=content", item)
		}
		r := conversation.Role(role)
		if !r.Valid() {
			return nil, fmt.Errorf("invalid --turn role %q", role)
		}
		turns = append(turns, conversation.Turn{Role: r, Content: content})
	}
	return turns, nil
}

// buildAskBody encodes one request the way the browser client does: a single
// input part plus one JSON message part per history turn.
func buildAskBody(text, filename string, audio []byte, history []conversation.Turn) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if len(audio) > 0 {
		w, err := mw.CreateFormFile("input", filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(audio); err != nil {
			return nil, "", err
		}
	} else if err := mw.WriteField("input", text); err != nil {
		return nil, "", err
	}

	for _, turn := range history {
		payload, err := json.Marshal(turn)
		if err != nil {
			return nil, "", err
		}
		if err := mw.WriteField("message", string(payload)); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
