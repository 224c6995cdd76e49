package ai

import (
	"strings"

	"github.com/Victorugws/swift/internal/model/persona"
	"github.com/Victorugws/swift/internal/service/ambient"
)

// Replies are spoken, so every rule keeps the output easy for TTS to read.
var speechRules = []string{
	"Respond briefly to the user's request, and do not provide unnecessary information.",
	"If you don't understand the user's request, ask for clarification.",
	"You do not have access to up-to-date information, so you should not provide real-time data.",
	"You are not capable of performing actions other than responding to the user.",
	"Do not use markdown, emojis, or other formatting in your responses. Respond in a way easily spoken by text-to-speech software.",
}

// BuildSystemPrompt renders the system message for p grounded in env.
func BuildSystemPrompt(p persona.Persona, env ambient.Context) string {
	location := env.LocationLabel
	if location == "" {
		location = ambient.Unknown
	}

	lines := make([]string, 0, len(speechRules)+len(p.Facts)+3)
	lines = append(lines, "You are "+p.Name+", "+p.Tagline+".")
	lines = append(lines, speechRules...)
	lines = append(lines,
		"User location is "+location+".",
		"The current time is "+env.LocalTime+".",
	)
	lines = append(lines, p.Facts...)

	var builder strings.Builder
	for i, line := range lines {
		if i > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString("- ")
		builder.WriteString(line)
	}
	return builder.String()
}
