package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Stage1   Stage1Config   `yaml:"stage1"`
	Stage2   Stage2Config   `yaml:"stage2"`
	Context  ContextConfig  `yaml:"context"`
	Prompts  PromptsConfig  `yaml:"prompts"`
	TimeCtx  TimeCtxConfig  `yaml:"timeContext"`
	Profile  ProfileConfig  `yaml:"profileContext"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	APIKey         string          `yaml:"apiKey"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	MaxPromptChars int             `yaml:"maxPromptChars"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// Stage1Config drives the draft generator backend (llama.cpp /completion).
type Stage1Config struct {
	URL              string        `yaml:"url"`
	ConnectTimeout   time.Duration `yaml:"connectTimeout"`
	ReadTimeout      time.Duration `yaml:"readTimeout"`
	NPredict         int           `yaml:"nPredict"`
	MaxNPredict      int           `yaml:"maxNPredict"`
	Temperature      float64       `yaml:"temperature"`
	TopK             int           `yaml:"topK"`
	TopP             float64       `yaml:"topP"`
	TypicalP         float64       `yaml:"typicalP"`
	MinP             float64       `yaml:"minP"`
	RepeatLastN      int           `yaml:"repeatLastN"`
	RepeatPenalty    float64       `yaml:"repeatPenalty"`
	PresencePenalty  float64       `yaml:"presencePenalty"`
	FrequencyPenalty float64       `yaml:"frequencyPenalty"`
	Stop             []string      `yaml:"stop"`
	StreamMaxBytes   int           `yaml:"streamMaxBytes"`
	DraftMaxChars    int           `yaml:"draftMaxChars"`
	StreamByDefault  bool          `yaml:"streamByDefault"`
}

// Stage2Config drives the corrector/responder backend (Ollama chat).
type Stage2Config struct {
	URL            string        `yaml:"url"`
	Model          string        `yaml:"model"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	MaxDraftChars  int           `yaml:"maxDraftChars"`
}

// ContextConfig bounds the conversation memory.
type ContextConfig struct {
	Capacity int `yaml:"capacity"`
	Window   int `yaml:"window"`
}

// PromptsConfig locates the external prompt text files.
type PromptsConfig struct {
	Dir        string `yaml:"dir"`
	Strict     bool   `yaml:"strict"`
	AutoReload bool   `yaml:"autoReload"`
}

// TimeCtxConfig controls the spoken time context injected into prompts.
type TimeCtxConfig struct {
	Enabled    bool   `yaml:"enabled"`
	TimeZone   string `yaml:"timeZone"`
	Location   string `yaml:"location"`
	IncludeISO bool   `yaml:"includeIso"`
}

// ProfileConfig carries the opaque candidate profile paragraph.
type ProfileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Text    string `yaml:"text"`
}

// ValkeyConfig enables the persistent consolidated-summary store.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PostgresConfig enables the append-only turn audit log.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.HTTP.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("MAX_PROMPT_CHARS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.MaxPromptChars = parsed
		}
	}
	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("LLAMA_URL"); v != "" {
		cfg.Stage1.URL = v
	}
	if v := os.Getenv("LLAMA_NPREDICT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Stage1.NPredict = parsed
		}
	}
	if v := os.Getenv("STAGE1_MAX_NPREDICT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Stage1.MaxNPredict = parsed
		}
	}
	if v := os.Getenv("LLAMA_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Stage1.Temperature = parsed
		}
	}
	if v := os.Getenv("LLAMA_TOPP"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Stage1.TopP = parsed
		}
	}
	if v := os.Getenv("STAGE1_CONNECT_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Stage1.ConnectTimeout = parsed
		}
	}
	if v := os.Getenv("STAGE1_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Stage1.ReadTimeout = parsed
		}
	}
	if v := os.Getenv("STAGE1_STREAM_MAX_BYTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Stage1.StreamMaxBytes = parsed
		}
	}
	if v := os.Getenv("STAGE1_DRAFT_MAX_CHARS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Stage1.DraftMaxChars = parsed
		}
	}
	if v := os.Getenv("STREAM_STAGE1_DEFAULT"); v != "" {
		cfg.Stage1.StreamByDefault = parseBool(v)
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.Stage2.URL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.Stage2.Model = v
	}
	if v := os.Getenv("OLLAMA_CONNECT_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Stage2.ConnectTimeout = parsed
		}
	}
	if v := os.Getenv("OLLAMA_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Stage2.ReadTimeout = parsed
		}
	}
	if v := os.Getenv("MAX_DRAFT_CHARS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Stage2.MaxDraftChars = parsed
		}
	}
	if v := os.Getenv("CONTEXT_CAPACITY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Context.Capacity = parsed
		}
	}
	if v := os.Getenv("CONTEXT_WINDOW"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Context.Window = parsed
		}
	}
	if v := os.Getenv("PROMPTS_DIR"); v != "" {
		cfg.Prompts.Dir = v
	}
	if v := os.Getenv("PROMPTS_STRICT"); v != "" {
		cfg.Prompts.Strict = parseBool(v)
	}
	if v := os.Getenv("PROMPTS_AUTO_RELOAD"); v != "" {
		cfg.Prompts.AutoReload = parseBool(v)
	}
	if v := os.Getenv("TIME_CONTEXT_ENABLED"); v != "" {
		cfg.TimeCtx.Enabled = parseBool(v)
	}
	if v := os.Getenv("TIME_CONTEXT_TZ"); v != "" {
		cfg.TimeCtx.TimeZone = v
	}
	if v := os.Getenv("TIME_CONTEXT_LOCATION"); v != "" {
		cfg.TimeCtx.Location = v
	}
	if v := os.Getenv("TIME_CONTEXT_INCLUDE_ISO"); v != "" {
		cfg.TimeCtx.IncludeISO = parseBool(v)
	}
	if v := os.Getenv("PROFILE_CONTEXT_ENABLED"); v != "" {
		cfg.Profile.Enabled = parseBool(v)
	}
	if v := os.Getenv("PROFILE_CONTEXT_TEXT"); v != "" {
		cfg.Profile.Text = v
	}
	if v := os.Getenv("VALKEY_ENABLED"); v != "" {
		cfg.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Valkey.Addr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8000",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   0, // streaming responses must not be cut off
			MaxPromptChars: 20000,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 120,
				Burst:             30,
			},
		},
		Stage1: Stage1Config{
			URL:             "http://localhost:8080/completion",
			ConnectTimeout:  5 * time.Second,
			ReadTimeout:     120 * time.Second,
			NPredict:        220,
			MaxNPredict:     220,
			Temperature:     0.30,
			TopK:            40,
			TopP:            0.90,
			TypicalP:        1.0,
			MinP:            0.05,
			RepeatLastN:     64,
			RepeatPenalty:   1.0,
			Stop:            []string{"<|eot_id|>"},
			StreamMaxBytes:  2048,
			DraftMaxChars:   480,
			StreamByDefault: true,
		},
		Stage2: Stage2Config{
			URL:            "http://localhost:11434/api/chat",
			Model:          "gpt-oss:120b-cloud",
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    300 * time.Second,
			MaxDraftChars:  6000,
		},
		Context: ContextConfig{
			Capacity: 60,
			Window:   20,
		},
		Prompts: PromptsConfig{
			Dir:        "prompts",
			Strict:     true,
			AutoReload: true,
		},
		TimeCtx: TimeCtxConfig{
			Enabled:    true,
			TimeZone:   "America/Sao_Paulo",
			Location:   "Pelotas, Rio Grande do Sul, Brazil",
			IncludeISO: true,
		},
		Profile: ProfileConfig{
			Enabled: true,
			Text:    defaultProfileText,
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
	}
}

const defaultProfileText = "PROFILE CONTEXT: I am Brazilian and I am based in Pelotas, Rio Grande do Sul, Brazil. " +
	"I am an integration professional focused on MuleSoft Anypoint Platform, Design Center, RAML, and DataWeave, " +
	"with over five years of hands-on experience delivering API-led integrations and enterprise-grade solutions. " +
	"My background includes consulting and delivery roles across organizations such as Accenture Brasil, Capgemini, IBM, " +
	"Tata Consultancy Services, Compass UOL, SYS4B, Mouts TI, and Gestor SA. " +
	"I am currently not employed and I am available for new opportunities. " +
	"I hold Salesforce certifications including Salesforce Certified Agentforce Specialist, Salesforce Certified Administrator, " +
	"Salesforce Certified Advanced Administrator, Salesforce Certified Platform App Builder, Salesforce Certified Associate, " +
	"Salesforce Certified Marketing Associate, Salesforce Certified JavaScript Developer I, Salesforce Certified MuleSoft Associate, " +
	"Salesforce Certified MuleSoft Developer I, and Salesforce Certified MuleSoft Platform Architect I. " +
	"If asked about compensation, I state around five thousand US dollars per month, unless the user prompt provides a different amount or cadence. " +
	"When responding in English, I write numbers in words in normal prose while preserving standard technical tokens such as OAuth 2.0, HTTP 500, Mule 4, and TLS 1.2."

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.MaxPromptChars <= 0 {
		return errors.New("http.maxPromptChars must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive when enabled")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive when enabled")
		}
	}
	if c.Stage1.URL == "" {
		return errors.New("stage1.url cannot be empty")
	}
	if c.Stage1.NPredict <= 0 {
		return errors.New("stage1.nPredict must be positive")
	}
	if c.Stage1.MaxNPredict <= 0 {
		return errors.New("stage1.maxNPredict must be positive")
	}
	if c.Stage1.DraftMaxChars <= 0 {
		return errors.New("stage1.draftMaxChars must be positive")
	}
	if c.Stage2.URL == "" {
		return errors.New("stage2.url cannot be empty")
	}
	if c.Stage2.Model == "" {
		return errors.New("stage2.model cannot be empty")
	}
	if c.Stage2.MaxDraftChars < c.Stage1.DraftMaxChars {
		return errors.New("stage2.maxDraftChars cannot be smaller than stage1.draftMaxChars")
	}
	if c.Context.Capacity <= 0 {
		return errors.New("context.capacity must be positive")
	}
	if c.Context.Window <= 0 {
		return errors.New("context.window must be positive")
	}
	if c.Context.Window > c.Context.Capacity {
		return errors.New("context.window cannot exceed context.capacity")
	}
	if c.Prompts.Dir == "" {
		return errors.New("prompts.dir cannot be empty")
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when valkey is enabled")
	}
	return nil
}
