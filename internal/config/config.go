package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	speechmodel "github.com/Victorugws/swift/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	AI        AIConfig
	Speech    SpeechConfig
	Identity  IdentityConfig
	Store     StoreConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	identity, err := loadIdentityConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Log:       loadLogConfig(),
		AI:        ai,
		Speech:    speech,
		Identity:  identity,
		Store:     store,
		Redis:     RedisConfig{URL: strings.TrimSpace(os.Getenv("REDIS_URL"))},
		RateLimit: rateLimit,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr            string
	Timezone        string
	MaxRequestBytes int64
	AllowedOrigins  []string
	PersonaID       string
}

func loadServerConfig() (ServerConfig, error) {
	addr, err := resolveAddr(strings.TrimSpace(os.Getenv("PORT")))
	if err != nil {
		return ServerConfig{}, err
	}

	maxBytes := int64(25 << 20)
	if override, err := parseOptionalIntEnv("MAX_REQUEST_BYTES"); err != nil {
		return ServerConfig{}, err
	} else if override != nil && *override > 0 {
		maxBytes = int64(*override)
	}

	return ServerConfig{
		Addr:            addr,
		Timezone:        strings.TrimSpace(os.Getenv("SERVER_TIMEZONE")),
		MaxRequestBytes: maxBytes,
		AllowedOrigins:  splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		PersonaID:       getEnvOrDefault("ASSISTANT_PERSONA", "swift"),
	}, nil
}

func resolveAddr(port string) (string, error) {
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string // json | console
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider    string // groq | ark
	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了所选 provider 必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case "ark":
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	default:
		return c.GroqAPIKey != "" && c.GroqModel != ""
	}
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", "groq"))
	if provider != "groq" && provider != "ark" {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value: %q", provider)
	}

	return AIConfig{
		Provider:    provider,
		GroqAPIKey:  strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		GroqBaseURL: getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:   getEnvOrDefault("GROQ_MODEL", "llama3-8b-8192"),
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	STTProvider     string // groq | volcengine
	GroqAPIKey      string
	GroqBaseURL     string
	WhisperModel    string
	AppID           string
	AccessToken     string
	ConcurrentMode  bool
	ASRLanguage     string // empty lets whisper detect the language
	ASREndpoint     string
	CartesiaAPIKey  string
	CartesiaBaseURL string
	CartesiaVersion string
	CartesiaModel   string
	VoiceID         string
	Timeout         time.Duration
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseDurationEnv("SPEECH_TIMEOUT", 30*time.Second)
	if err != nil {
		return SpeechConfig{}, err
	}

	concurrent, err := parseBoolEnv("SPEECH_CONCURRENT_MODE", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	provider := strings.ToLower(getEnvOrDefault("STT_PROVIDER", "groq"))
	if provider != "groq" && provider != "volcengine" {
		return SpeechConfig{}, fmt.Errorf("invalid STT_PROVIDER value: %q", provider)
	}

	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	if accessToken == "" {
		accessToken = strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	}

	return SpeechConfig{
		STTProvider:     provider,
		GroqAPIKey:      strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		GroqBaseURL:     getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		WhisperModel:    getEnvOrDefault("WHISPER_MODEL", "whisper-large-v3"),
		AppID:           strings.TrimSpace(os.Getenv("SPEECH_APP_ID")),
		AccessToken:     accessToken,
		ConcurrentMode:  concurrent,
		ASRLanguage:     strings.TrimSpace(os.Getenv("SPEECH_ASR_LANGUAGE")),
		ASREndpoint:     getEnvOrDefault("SPEECH_ASR_ENDPOINT", "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"),
		CartesiaAPIKey:  strings.TrimSpace(os.Getenv("CARTESIA_API_KEY")),
		CartesiaBaseURL: getEnvOrDefault("CARTESIA_BASE_URL", "https://api.cartesia.ai"),
		CartesiaVersion: getEnvOrDefault("CARTESIA_VERSION", "2024-06-30"),
		CartesiaModel:   getEnvOrDefault("CARTESIA_MODEL", "sonic-english"),
		VoiceID:         strings.TrimSpace(os.Getenv("CARTESIA_VOICE_ID")),
		Timeout:         timeout,
	}, nil
}

// ToModel 转换为语音服务使用的配置结构。
func (c SpeechConfig) ToModel() *speechmodel.SpeechConfig {
	return &speechmodel.SpeechConfig{
		STTProvider:     c.STTProvider,
		GroqAPIKey:      c.GroqAPIKey,
		GroqBaseURL:     c.GroqBaseURL,
		WhisperModel:    c.WhisperModel,
		AppID:           c.AppID,
		AccessToken:     c.AccessToken,
		ConcurrentMode:  c.ConcurrentMode,
		ASRLanguage:     c.ASRLanguage,
		ASREndpoint:     c.ASREndpoint,
		CartesiaAPIKey:  c.CartesiaAPIKey,
		CartesiaBaseURL: c.CartesiaBaseURL,
		CartesiaVersion: c.CartesiaVersion,
		CartesiaModel:   c.CartesiaModel,
		VoiceID:         c.VoiceID,
		Timeout:         c.Timeout,
	}
}

// IdentityConfig 描述身份解析配置。
type IdentityConfig struct {
	SupabaseURL     string
	SupabaseAnonKey string
	JWTSecret       string
	CacheTTL        time.Duration
	Timeout         time.Duration
}

func loadIdentityConfig() (IdentityConfig, error) {
	ttl, err := parseDurationEnv("IDENTITY_CACHE_TTL", time.Minute)
	if err != nil {
		return IdentityConfig{}, err
	}

	timeout, err := parseDurationEnv("IDENTITY_TIMEOUT", 5*time.Second)
	if err != nil {
		return IdentityConfig{}, err
	}

	return IdentityConfig{
		SupabaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey: strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		JWTSecret:       strings.TrimSpace(os.Getenv("SUPABASE_JWT_SECRET")),
		CacheTTL:        ttl,
		Timeout:         timeout,
	}, nil
}

// StoreConfig 描述消息日志存储。
type StoreConfig struct {
	Driver      string // postgres | sqlite | memory | none
	DatabaseURL string
	SQLitePath  string
	Timeout     time.Duration
	Migrate     bool
}

func loadStoreConfig() (StoreConfig, error) {
	timeout, err := parseDurationEnv("MESSAGE_LOG_TIMEOUT", 5*time.Second)
	if err != nil {
		return StoreConfig{}, err
	}

	migrate, err := parseBoolEnv("MESSAGE_LOG_MIGRATE", true)
	if err != nil {
		return StoreConfig{}, err
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	defaultDriver := "none"
	if databaseURL != "" {
		defaultDriver = "postgres"
	}

	driver := strings.ToLower(getEnvOrDefault("MESSAGE_LOG_DRIVER", defaultDriver))
	switch driver {
	case "postgres", "sqlite", "memory", "none":
	default:
		return StoreConfig{}, fmt.Errorf("invalid MESSAGE_LOG_DRIVER value: %q", driver)
	}

	return StoreConfig{
		Driver:      driver,
		DatabaseURL: databaseURL,
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "swift-messages.db"),
		Timeout:     timeout,
		Migrate:     migrate,
	}, nil
}

// RedisConfig 描述可选的 Redis 连接。
type RedisConfig struct {
	URL string
}

// Enabled 表示是否配置了 Redis。
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// RateLimitConfig 描述入口限流。
type RateLimitConfig struct {
	PerMinute int
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	perMinute, err := parseOptionalIntEnv("RATE_LIMIT_PER_MINUTE")
	if err != nil {
		return RateLimitConfig{}, err
	}
	if perMinute == nil || *perMinute < 0 {
		return RateLimitConfig{}, nil
	}
	return RateLimitConfig{PerMinute: *perMinute}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	// 兼容纯数字（秒）
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
