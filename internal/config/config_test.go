package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "AI_PROVIDER", "STT_PROVIDER", "DATABASE_URL", "MESSAGE_LOG_DRIVER", "RATE_LIMIT_PER_MINUTE", "CORS_ALLOWED_ORIGINS", "SPEECH_ASR_LANGUAGE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(25<<20), cfg.Server.MaxRequestBytes)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "groq", cfg.AI.Provider)
	assert.Equal(t, "llama3-8b-8192", cfg.AI.GroqModel)
	assert.Equal(t, "whisper-large-v3", cfg.Speech.WhisperModel)
	assert.Equal(t, "sonic-english", cfg.Speech.CartesiaModel)
	assert.Empty(t, cfg.Speech.ASRLanguage)
	assert.Equal(t, "2024-06-30", cfg.Speech.CartesiaVersion)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, 0, cfg.RateLimit.PerMinute)
}

func TestLoadDatabaseURLSelectsPostgres(t *testing.T) {
	t.Setenv("MESSAGE_LOG_DRIVER", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/swift")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":               "80 80",
		"AI_PROVIDER":        "gemini",
		"STT_PROVIDER":       "deepgram",
		"MESSAGE_LOG_DRIVER": "mongo",
		"SPEECH_TIMEOUT":     "soon",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseDurationEnvAcceptsSeconds(t *testing.T) {
	t.Setenv("SPEECH_TIMEOUT", "45")
	got, err := parseDurationEnv("SPEECH_TIMEOUT", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, got)
}

func TestAIConfigEnabled(t *testing.T) {
	assert.True(t, AIConfig{Provider: "groq", GroqAPIKey: "k", GroqModel: "m"}.Enabled())
	assert.False(t, AIConfig{Provider: "groq", GroqModel: "m"}.Enabled())
	assert.True(t, AIConfig{Provider: "ark", Model: "m", AccessKey: "a", SecretKey: "s"}.Enabled())
	assert.False(t, AIConfig{Provider: "ark", APIKey: "k"}.Enabled())
}
