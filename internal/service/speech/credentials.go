package speech

import (
	"errors"
	"strings"

	speechmodel "github.com/Victorugws/swift/internal/model/speech"
)

// resolveCredentials returns the Volcengine app id and access token. APIKey is
// accepted as the token for older configurations.
func resolveCredentials(cfg *speechmodel.SpeechConfig) (string, string, error) {
	if cfg == nil {
		return "", "", errors.New("volcengine speech config is nil")
	}

	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}

	if appID == "" || token == "" {
		return "", "", errors.New("volcengine speech config requires SPEECH_APP_ID and SPEECH_ACCESS_TOKEN")
	}
	return appID, token, nil
}
