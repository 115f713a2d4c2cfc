package metrics

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenUsage captures estimated token counts for one chain invocation.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	DraftTokens      int `json:"draftTokens,omitempty"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens"`
}

// IsZero reports whether usage data is absent.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.DraftTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens approximates the token count of text using the cl100k_base
// encoding. Falls back to a bytes/4 heuristic when the encoding is
// unavailable (offline environments).
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		if e, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE); err == nil {
			enc = e
		}
	})
	if enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
