package speech

import "time"

// SpeechConfig 语音服务配置
type SpeechConfig struct {
	// STTProvider selects the recognizer: "groq" (whisper) or "volcengine".
	STTProvider string `json:"sttProvider"`

	// Groq whisper 配置
	GroqAPIKey   string `json:"groqApiKey"`
	GroqBaseURL  string `json:"groqBaseUrl"`
	WhisperModel string `json:"whisperModel"`

	// Volcengine 配置
	AppID          string `json:"appId"`            // 火山引擎 APP ID
	AccessToken    string `json:"accessToken"`      // 火山引擎 Access Token
	APIKey         string `json:"apiKey,omitempty"` // 兼容旧配置的 API Key
	ConcurrentMode bool   `json:"concurrentMode"`   // ASR并发模式（false为小时版）
	ASRLanguage    string `json:"asrLanguage"`
	ASREndpoint    string `json:"asrEndpoint"`      // websocket URL; tests point it at a local server

	// Cartesia 配置
	CartesiaAPIKey  string `json:"cartesiaApiKey"`
	CartesiaBaseURL string `json:"cartesiaBaseUrl"`
	CartesiaVersion string `json:"cartesiaVersion"`
	CartesiaModel   string `json:"cartesiaModel"`
	VoiceID         string `json:"voiceId"`

	// 通用配置
	Timeout time.Duration `json:"timeout"`
}
