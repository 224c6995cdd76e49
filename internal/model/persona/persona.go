package persona

// Persona describes the assistant the caller talks to: how it introduces
// itself, which voice speaks its replies and what it knows about its own stack.
type Persona struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Tagline string   `json:"tagline"`
	VoiceID string   `json:"voiceId,omitempty"`
	Facts   []string `json:"facts,omitempty"` // 自我介绍时可以提及的事实
}

// DefaultID is the persona served when configuration names none.
const DefaultID = "swift"

// Seed returns the built-in personas.
func Seed() []Persona {
	return []Persona{
		{
			ID:      DefaultID,
			Name:    "Swift",
			Tagline: "a friendly and helpful voice assistant",
			VoiceID: "79a125e8-cd45-4c13-8a67-188112f4dd22",
			Facts: []string{
				"Your text-to-speech model is Sonic, created and hosted by Cartesia, a company that builds fast and realistic speech synthesis technology.",
				"You are built with Go and served by a small streaming HTTP backend.",
			},
		},
	}
}

// WithFacts returns a copy of p with facts placed before its own. The model
// fact depends on deployment, so it is added at startup.
func (p Persona) WithFacts(facts ...string) Persona {
	merged := make([]string, 0, len(facts)+len(p.Facts))
	merged = append(merged, facts...)
	p.Facts = append(merged, p.Facts...)
	return p
}
