package chain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/transcript"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/prompts"
)

const assistantHeader = "<|start_header_id|>assistant<|end_header_id|>"

// BuildLlama3ChatPrompt renders a system/user pair in the llama-3 chat
// template expected by the raw /completion endpoint.
func BuildLlama3ChatPrompt(system, user string) string {
	sysTxt := strings.TrimSpace(strings.ReplaceAll(system, "\r", ""))
	usrTxt := strings.TrimSpace(strings.ReplaceAll(user, "\r", ""))
	return "<|begin_of_text|><|start_header_id|>system<|end_header_id|>\n" +
		sysTxt + "\n" +
		"<|eot_id|><|start_header_id|>user<|end_header_id|>\n" +
		usrTxt + "\n" +
		"<|eot_id|>" + assistantHeader + "\n\n"
}

// StripPromptEcho drops everything up to and including the assistant header
// when a backend echoes the prompt back despite echo=false.
func StripPromptEcho(text string) string {
	if text == "" {
		return text
	}
	if i := strings.Index(strings.ToLower(text), assistantHeader); i >= 0 {
		return strings.TrimSpace(text[i+len(assistantHeader):])
	}
	return strings.TrimSpace(text)
}

// FindStopIndex returns the earliest case-insensitive position of any stop
// marker in text, or -1 when none occurs.
func FindStopIndex(text string, markers []string) int {
	if text == "" || len(markers) == 0 {
		return -1
	}
	low := strings.ToLower(text)
	best := -1
	for _, m := range markers {
		if m == "" {
			continue
		}
		j := strings.Index(low, strings.ToLower(m))
		if j >= 0 && (best < 0 || j < best) {
			best = j
		}
	}
	return best
}

var (
	ansiRe   = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
	spacesRe = regexp.MustCompile(`[ \t]+`)
)

// CleanDraft normalizes a collected stage-1 draft before it is handed to
// stage 2: ANSI escapes and CR variants go, anything after the first code
// fence goes, stage/traceback noise lines go, runs of spaces collapse, and
// the result is clipped to draftMax (then hardMax) characters.
func CleanDraft(raw string, draftMax, hardMax int) string {
	s := ansiRe.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	var kept []string
	for _, ln := range strings.Split(s, "\n") {
		if transcript.IsIgnoredLine(ln) {
			continue
		}
		if trimmed := strings.TrimSpace(ln); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	s = strings.TrimSpace(strings.Join(kept, "\n"))
	s = strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))

	if draftMax > 0 && len(s) > draftMax {
		s = strings.TrimRight(s[:draftMax], " \t\n") + "…"
	}
	if hardMax > 0 && len(s) > hardMax {
		s = strings.TrimRight(s[:hardMax], " \t\n") + "…"
	}
	return s
}

// buildStage1UserText extracts the utterance to answer and renders the
// stage-1 user block. The author and speech are returned alongside so the
// caller can short-circuit on canned utterances.
func (s *service) buildStage1UserText(rawPrompt string, mood Mood) (author, speech, userText string) {
	author, speech = s.lastUtterance(rawPrompt)
	if transcript.IsCodeLike(speech) {
		speech = "No clear spoken interview question found."
	}

	rulesKey := prompts.Stage1RulesPositive
	moodTag := "POSITIVE"
	if mood == MoodNegative {
		rulesKey = prompts.Stage1RulesNegative
		moodTag = "NEGATIVE"
	}

	userText = strings.TrimSpace(fmt.Sprintf(
		"You are Leonel Dorneles Porto answering as a candidate in a technical interview.\n"+
			"MOOD: %s\nAUTHOR: %s\nSPEECH: %s\nTIME: %s\n%s\nAnswer now:",
		moodTag, author, speech, s.timeLine(), s.prompts.Get(rulesKey),
	))
	return author, speech, userText
}

func (s *service) lastUtterance(rawPrompt string) (author, speech string) {
	last, ok := transcript.ExtractLastValid(rawPrompt)
	if !ok {
		return transcript.DefaultAuthor, strings.TrimSpace(rawPrompt)
	}
	author = transcript.NormalizeAuthor(last.Author)
	return author, strings.TrimSpace(last.Text)
}

func (s *service) effectiveNPredict(req AskRequest) int {
	base := s.cfg.Stage1.NPredict
	if req.NPredict != nil {
		base = *req.NPredict
	}
	if base < 1 {
		base = 1
	}
	if base > s.cfg.Stage1.MaxNPredict {
		base = s.cfg.Stage1.MaxNPredict
	}
	return base
}
