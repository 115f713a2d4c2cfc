package transcript

import (
	"regexp"
	"strings"
)

// teamsMarker is the inline turn delimiter emitted by the Teams caption
// overlay when several turns collapse onto one line.
const teamsMarker = "Teams • "

var (
	interviewerPrefixRe = regexp.MustCompile(`(?i)^\s*(interviewer|entrevistador)\s*:\s*`)
	ignoreLineRe        = regexp.MustCompile(`(?i)^\s*(\[(stage1|stage2).*?\]|traceback\b|file\s+".*?"|during\s+handling\b|\[ollama_error\]|\[stage1_http_error\]|\[stage1_error\])`)
	psPromptRe          = regexp.MustCompile(`(?i)^\s*PS\s+[A-Z]:\\.*?>\s*`)
)

// ParseTeamsInline splits text on the inline Teams turn marker and returns
// the last segment carrying both a speaker and a message.
func ParseTeamsInline(s string) (Utterance, bool) {
	if !strings.Contains(s, "Teams •") {
		return Utterance{}, false
	}
	var last Utterance
	found := false
	for _, seg := range strings.Split(s, teamsMarker)[1:] {
		speaker, msg, ok := strings.Cut(seg, ":")
		if !ok {
			continue
		}
		speaker = strings.TrimSpace(speaker)
		msg = strings.TrimSpace(msg)
		if speaker == "" || msg == "" {
			continue
		}
		last = Utterance{Author: NormalizeAuthor(speaker), Text: msg, Raw: s}
		found = true
	}
	return last, found
}

// ParseLine attempts to split one transcript line into speaker and message.
// A 3-way split on the last two colons wins when it produces both parts
// (handles timestamp-prefixed logs); otherwise the first colon splits.
func ParseLine(line string) (Utterance, bool) {
	s := strings.TrimSpace(line)
	if s == "" || !strings.Contains(s, ":") {
		return Utterance{}, false
	}

	if u, ok := ParseTeamsInline(s); ok {
		return u, true
	}

	if interviewerPrefixRe.MatchString(s) {
		_, rest, _ := strings.Cut(s, ":")
		return Utterance{Author: DefaultAuthor, Text: strings.TrimSpace(rest), Raw: s}, true
	}

	if prefixIdx := strings.LastIndex(s, ":"); prefixIdx > 0 {
		if midIdx := strings.LastIndex(s[:prefixIdx], ":"); midIdx >= 0 {
			speaker := strings.TrimSpace(s[midIdx+1 : prefixIdx])
			msg := strings.TrimSpace(s[prefixIdx+1:])
			if speaker != "" && msg != "" {
				return Utterance{Author: NormalizeAuthor(speaker), Text: msg, Raw: s}, true
			}
		}
	}

	author, rest, _ := strings.Cut(s, ":")
	author = strings.TrimSpace(author)
	text := strings.TrimSpace(rest)
	if author == "" || text == "" {
		return Utterance{}, false
	}
	return Utterance{Author: NormalizeAuthor(author), Text: text, Raw: s}, true
}

// IsIgnoredLine reports whether a transcript line is pipeline noise: stage
// markers echoed back, stack-trace fragments, shell prompt echoes.
func IsIgnoredLine(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return true
	}
	return ignoreLineRe.MatchString(s) || psPromptRe.MatchString(s)
}

// ExtractLastValid returns the most recent valid utterance in raw, or false
// when no line yields speech that survives the noise and code filters.
func ExtractLastValid(raw string) (Utterance, bool) {
	if u, ok := ParseTeamsInline(strings.TrimSpace(raw)); ok {
		if !IsNoise(u.Text) && !IsCodeLike(u.Text) {
			return u, true
		}
	}

	var lines []string
	for _, ln := range strings.Split(raw, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || IsIgnoredLine(ln) {
			continue
		}
		lines = append(lines, ln)
	}

	// explicit interviewer prefixes outrank generic lines
	for i := len(lines) - 1; i >= 0; i-- {
		if !interviewerPrefixRe.MatchString(lines[i]) {
			continue
		}
		if u, ok := ParseLine(lines[i]); ok && !IsNoise(u.Text) && !IsCodeLike(u.Text) {
			return u, true
		}
	}

	for i := len(lines) - 1; i >= 0; i-- {
		u, ok := ParseLine(lines[i])
		if !ok || IsNoise(u.Text) || IsCodeLike(u.Text) {
			continue
		}
		return u, true
	}

	return Utterance{}, false
}
