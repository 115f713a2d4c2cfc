package transcript

import (
	"regexp"
	"strings"
)

var (
	acronymRe    = regexp.MustCompile(`^[A-Z]{1,4}(\s*[A-Z]{1,4})*$`)
	codePrefixRe = regexp.MustCompile(`(?i)^\s*(import|from|def|class|async\s+def|const|let|var|function|public|private|package|using|#include)\b`)
)

var questionPrefixes = []string{
	"what ", "how ", "why ", "when ", "where ", "can ", "should ",
	"describe ", "explain ", "tell me ",
}

var codeTokens = []string{
	"%dw", "<mule", "</", "{", "}", "();", "=>", "==", "!=", "/*", "*/", "BEGIN:VEVENT",
}

const symbolChars = `{}[]();=<>$#@\`

// IsNoise reports whether text is a transcription artifact rather than
// speech: empty, or a short run of uppercase acronym-looking groups.
func IsNoise(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	return len(t) <= 4 && acronymRe.MatchString(t)
}

// IsCodeLike reports whether text looks like pasted code or markup instead
// of spoken content. Question-phrased text is exempt unless it carries
// unmistakable fences or markup.
func IsCodeLike(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	low := strings.ToLower(t)

	if strings.Contains(t, "?") || hasQuestionPrefix(low) {
		return strings.Contains(t, "```") ||
			strings.Contains(t, "<|begin_of_text|>") ||
			strings.Contains(low, "%dw") ||
			strings.Contains(low, "<mule")
	}

	if strings.HasPrefix(t, "```") || strings.HasSuffix(t, "```") {
		return true
	}
	if strings.HasPrefix(t, "#!/") {
		return true
	}
	if strings.Contains(t, "<|begin_of_text|>") || strings.Contains(t, "<|start_header_id|>") {
		return true
	}
	if codePrefixRe.MatchString(t) {
		return true
	}

	if len(t) >= 60 {
		for _, tok := range codeTokens {
			if strings.Contains(t, tok) {
				return true
			}
		}
	}

	if len(t) >= 120 && countSymbols(t) >= 14 {
		return true
	}

	return false
}

func hasQuestionPrefix(low string) bool {
	for _, p := range questionPrefixes {
		if strings.HasPrefix(low, p) {
			return true
		}
	}
	return false
}

func countSymbols(t string) int {
	n := 0
	for _, r := range t {
		if strings.ContainsRune(symbolChars, r) {
			n++
		}
	}
	return n
}
