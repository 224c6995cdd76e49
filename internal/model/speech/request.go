package speech

// ASRRequest 语音识别请求
type ASRRequest struct {
	RequestID string `json:"requestId"`
	Audio     []byte `json:"-"`
	Filename  string `json:"filename"` // original upload name; providers infer the container from it
	Format    string `json:"format"`   // mp3, wav, webm, etc.
	Language  string `json:"language"` // zh-CN, en-US, etc.
}

// OutputFormat describes the audio container the synthesizer is asked for.
type OutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// RawPCMFloat32 is raw little-endian 32-bit float mono at 24 kHz, played by the
// client without decoding.
var RawPCMFloat32 = OutputFormat{
	Container:  "raw",
	Encoding:   "pcm_f32le",
	SampleRate: 24000,
}

// TTSRequest 语音合成请求
type TTSRequest struct {
	Text    string       `json:"text"`
	VoiceID string       `json:"voiceId"` // empty means the configured default voice
	ModelID string       `json:"modelId"`
	Format  OutputFormat `json:"format"`
}
