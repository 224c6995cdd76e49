package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	speechmodel "github.com/Victorugws/swift/internal/model/speech"
)

const (
	// 16 kHz, 16 bit, mono, 200 ms
	asrChunkSize = 6400
	// Volcengine reports success as 0 or 20000000.
	asrCodeOK = 20000000
	// The big-model session needs an explicit language.
	volcengineDefaultLanguage = "en-US"
)

// VolcengineRecognizer transcribes audio with the Volcengine big-model ASR
// websocket API. The whole clip is sent up front; there is no pacing.
type VolcengineRecognizer struct {
	config *speechmodel.SpeechConfig
	dialer *websocket.Dialer
	logger zerolog.Logger
}

// NewVolcengineRecognizer builds a recognizer from cfg.
func NewVolcengineRecognizer(cfg *speechmodel.SpeechConfig, logger zerolog.Logger) *VolcengineRecognizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VolcengineRecognizer{
		config: cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: timeout},
		logger: logger.With().Str("component", "volcengine_asr").Logger(),
	}
}

type asrSessionRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
	} `json:"request"`
}

type asrUtterance struct {
	Text     string `json:"text"`
	Definite bool   `json:"definite"`
}

type asrServerMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// Recognize implements Recognizer.
func (r *VolcengineRecognizer) Recognize(ctx context.Context, req *speechmodel.ASRRequest) (*speechmodel.ASRResponse, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("volcengine asr: no audio")
	}

	appID, token, err := resolveCredentials(r.config)
	if err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	resourceID := "volc.bigasr.sauc.duration"
	if r.config.ConcurrentMode {
		resourceID = "volc.bigasr.sauc.concurrent"
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", uuid.NewString())

	conn, resp, err := r.dialer.DialContext(ctx, r.config.ASREndpoint, header)
	if err != nil {
		return nil, fmt.Errorf("volcengine asr: connect: %w", err)
	}
	defer conn.Close()

	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			r.logger.Debug().Str("logid", logID).Str("request_id", requestID).Msg("asr connected")
		}
	}

	// Unblock reads when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := r.sendSession(conn, r.buildSessionRequest(req, requestID)); err != nil {
		return nil, err
	}
	if err := r.sendAudio(conn, req.Audio); err != nil {
		return nil, err
	}

	out, err := r.receive(conn)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	out.RequestID = requestID
	out.Language = req.Language
	return out, nil
}

func (r *VolcengineRecognizer) buildSessionRequest(req *speechmodel.ASRRequest, requestID string) *asrSessionRequest {
	session := &asrSessionRequest{}
	session.User.UID = requestID

	session.Audio.Format = req.Format
	if session.Audio.Format == "" {
		session.Audio.Format = "wav"
	}
	session.Audio.Language = req.Language
	if session.Audio.Language == "" {
		session.Audio.Language = r.config.ASRLanguage
	}
	if session.Audio.Language == "" {
		session.Audio.Language = volcengineDefaultLanguage
	}
	session.Audio.Codec = "raw"
	session.Audio.Rate = 16000
	session.Audio.Bits = 16
	session.Audio.Channel = 1

	session.Request.ModelName = "bigmodel"
	session.Request.EnableITN = true
	session.Request.EnablePunc = true
	session.Request.ShowUtterances = true
	session.Request.ResultType = "full"
	return session
}

func (r *VolcengineRecognizer) sendSession(conn *websocket.Conn, session *asrSessionRequest) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("volcengine asr: marshal session: %w", err)
	}
	payload, err = compress(payload, GzipCompression)
	if err != nil {
		return fmt.Errorf("volcengine asr: %w", err)
	}
	return writeFrame(conn, newConfigFrame(payload))
}

// The config frame takes sequence 1, so audio starts at 2.
func (r *VolcengineRecognizer) sendAudio(conn *websocket.Conn, audio []byte) error {
	sequence := int32(2)
	for start := 0; start < len(audio); start += asrChunkSize {
		end := min(start+asrChunkSize, len(audio))

		chunk, err := compress(audio[start:end], GzipCompression)
		if err != nil {
			return fmt.Errorf("volcengine asr: %w", err)
		}
		if err := writeFrame(conn, newAudioFrame(chunk, sequence, end == len(audio))); err != nil {
			return err
		}
		sequence++
	}
	return nil
}

func writeFrame(conn *websocket.Conn, frame *Frame) error {
	data, err := frame.MarshalBinary()
	if err != nil {
		return fmt.Errorf("volcengine asr: encode frame: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("volcengine asr: send frame: %w", err)
	}
	return nil
}

func (r *VolcengineRecognizer) receive(conn *websocket.Conn) (*speechmodel.ASRResponse, error) {
	var (
		text     string
		duration int64
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("volcengine asr: read: %w", err)
		}

		frame, err := DecodeFrame(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("volcengine asr: decode: %w", err)
		}

		switch frame.Header.Type {
		case ServerError:
			payload, _ := decompress(frame.Payload, frame.Header.Compression)
			return nil, fmt.Errorf("volcengine asr: server error %d: %s", frame.ErrorCode, strings.TrimSpace(string(payload)))

		case FullServerResponse:
			payload, err := decompress(frame.Payload, frame.Header.Compression)
			if err != nil {
				return nil, fmt.Errorf("volcengine asr: %w", err)
			}

			var msg asrServerMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				r.logger.Debug().Err(err).Msg("skipping undecodable asr message")
				continue
			}
			if msg.Code != 0 && msg.Code != asrCodeOK {
				return nil, fmt.Errorf("volcengine asr: api error %d: %s", msg.Code, msg.Message)
			}

			if candidate := resultText(msg); candidate != "" {
				text = candidate
			}
			if msg.AudioInfo.Duration > 0 {
				duration = msg.AudioInfo.Duration
			}

			if frame.IsLast() {
				return &speechmodel.ASRResponse{
					Text:      text,
					Duration:  duration,
					CreatedAt: time.Now().UTC(),
				}, nil
			}
		}
	}
}

func resultText(msg asrServerMessage) string {
	if msg.Result.Text != "" {
		return msg.Result.Text
	}
	parts := make([]string, 0, len(msg.Result.Utterances))
	for _, u := range msg.Result.Utterances {
		if u.Text != "" {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}
