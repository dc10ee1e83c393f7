// Package draft holds authoring aids: keyword-triggered image prompt
// suggestions and phrase heuristics for draft text. Everything here is a
// pure function from text to findings; nothing touches the queue.
package draft

import "strings"

// Prompt is an image-generation prompt suggested for a draft.
type Prompt struct {
	Keyword string
	Text    string
}

// promptStyle is the shared visual style appended to every suggestion so the
// channel imagery stays consistent.
const promptStyle = "Dark background, grunge aesthetic, film grain texture, glitch effects, " +
	"red accent color, underground techno style, distressed typography, " +
	"circle badge design, anti-mainstream vibe"

// promptTable maps a draft keyword to its prompt body.
var promptTable = []Prompt{
	{Keyword: "психолог", Text: "Brain with cracks and healing light, therapy concept"},
	{Keyword: "бот", Text: "Chat interface with AI brain, digital journal concept"},
	{Keyword: "вертушки", Text: "Vinyl turntable with dust particles, DJ equipment"},
	{Keyword: "23:00", Text: "Clock showing 23:00 with laptop closing, sleep vs work concept"},
}

// SuggestPrompts returns prompts whose keyword appears in text
// (case-insensitive). At most one suggestion per keyword, in table order.
func SuggestPrompts(text string) []Prompt {
	lower := strings.ToLower(text)
	var out []Prompt
	for _, p := range promptTable {
		if strings.Contains(lower, p.Keyword) {
			out = append(out, Prompt{Keyword: p.Keyword, Text: p.Text + ", " + promptStyle})
		}
	}
	return out
}

// Finding flags a suspicious fragment in a draft.
type Finding struct {
	Phrase string
	Note   string
}

// artifactPhrases are generator tells that read badly in the channel.
var artifactPhrases = []Finding{
	{Phrase: "as an ai", Note: "assistant disclaimer leaked into the draft"},
	{Phrase: "в заключение", Note: "essay-style closing, posts should end abruptly"},
	{Phrase: "давайте разберемся", Note: "listicle opener, rewrite the lead"},
	{Phrase: "—", Note: "em-dash, the channel style uses plain dashes"},
	{Phrase: "🌟", Note: "sparkle emoji off brand"},
}

// Findings scans a draft for artifact phrases. Case-insensitive; each phrase
// is reported once no matter how often it occurs.
func Findings(text string) []Finding {
	lower := strings.ToLower(text)
	var out []Finding
	for _, f := range artifactPhrases {
		if strings.Contains(lower, f.Phrase) {
			out = append(out, f)
		}
	}
	return out
}
