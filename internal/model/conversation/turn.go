package conversation

import "time"

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two accepted conversation roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message of the caller-owned history. The client resends the full
// history on every request; the server never stores it.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Source tags where a logged turn came from.
type Source string

const (
	SourceVoice     Source = "voice"
	SourceAssistant Source = "assistant"
)

// AnonymousUserID is recorded when the caller presented no usable credential.
const AnonymousUserID = "anonymous"

// LogRecord mirrors one row of the append-only messages table.
type LogRecord struct {
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`
}

// NewLogRecord builds the record for a turn spoken by role.
func NewLogRecord(userID string, role Role, content string, now time.Time) LogRecord {
	source := SourceVoice
	if role == RoleAssistant {
		source = SourceAssistant
	}
	if userID == "" {
		userID = AnonymousUserID
	}
	return LogRecord{
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: now.UTC(),
		Source:    source,
	}
}

// ISOTimestamp renders the timestamp the way JavaScript's toISOString does.
func (r LogRecord) ISOTimestamp() string {
	return r.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")
}
