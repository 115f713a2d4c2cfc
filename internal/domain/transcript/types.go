package transcript

import "strings"

// DefaultAuthor is the canonical speaker used when the transcript does not
// name one, or names an unknown sentinel.
const DefaultAuthor = "Interviewer"

// Utterance is the latest spoken line extracted from a transcript.
type Utterance struct {
	Author string
	Text   string
	Raw    string
}

// NormalizeAuthor maps empty and unknown-sentinel speakers to DefaultAuthor.
func NormalizeAuthor(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return DefaultAuthor
	}
	switch strings.ToLower(author) {
	case "unknown", "desconhecido":
		return DefaultAuthor
	}
	return author
}
