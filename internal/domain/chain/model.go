package chain

import (
	"strings"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/config"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/llm/ollama"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/pkg/timectx"
)

// Mood selects the answer tone for both stages.
type Mood string

const (
	MoodPositive Mood = "positivo"
	MoodNegative Mood = "negativo"
)

// ResolveMood maps a free-form route hint to a mood, falling back to def when
// the hint is unknown or empty.
func ResolveMood(route string, def Mood) Mood {
	switch strings.ToLower(strings.TrimSpace(route)) {
	case "negativo", "negative", "no", "hard", "reject", "sad", "triste":
		return MoodNegative
	case "positivo", "positive", "yes", "soft", "happy", "feliz":
		return MoodPositive
	}
	return def
}

// AskRequest is the validated payload accepted by the chain endpoints.
// Pointer fields distinguish "absent" from zero so per-request overrides only
// replace the configured defaults when actually sent.
type AskRequest struct {
	Prompt       string   `json:"prompt"`
	NPredict     *int     `json:"n_predict,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	TopP         *float64 `json:"top_p,omitempty"`
	BackendURL   string   `json:"url,omitempty"`
	StreamStage1 bool     `json:"stream_stage1"`
	Route        string   `json:"route,omitempty"`
}

// Stream markers interleaved with model output when stage-1 streaming is on.
const (
	MarkerStage1      = "[stage1]\n"
	MarkerStage1Done  = "\n[stage1_done]\n"
	MarkerStage2      = "\n[stage2]\n"
	MarkerStage1Error = "[stage1_error] "
	MarkerStage1HTTP  = "[stage1_http_error] "
	MarkerOllamaError = "[ollama_error] "
)

// Config carries everything the chain service needs beyond its clients.
type Config struct {
	Stage1  config.Stage1Config
	Stage2  config.Stage2Config
	Profile config.ProfileConfig
	TimeCtx timectx.Config
}

// Sampling profiles for the stage-2 backend.
var (
	optionsProfilePositive = ollama.Options{Temperature: 0.2, TopP: 0.9, RepeatPenalty: 1.1, NumCtx: 4096}
	optionsProfileNegative = ollama.Options{Temperature: 0.25, TopP: 0.9, RepeatPenalty: 1.1, NumCtx: 4096}
	optionsCorrector       = ollama.Options{Temperature: 0.1, TopP: 0.8, RepeatPenalty: 1.1, NumCtx: 4096}
)
