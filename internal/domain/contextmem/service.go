package contextmem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/llm/ollama"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/prompts"
	apperrors "github.com/LeonelIntegrationXpert/mt-chain-proxy/pkg/errors"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/pkg/timectx"
)

// Turn is one clean utterance kept in the conversation ring buffer.
type Turn struct {
	At     time.Time `json:"at"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
}

// Snapshot is the persisted consolidated summary with the hash of the window
// it was built from.
type Snapshot struct {
	Summary   string    `json:"summary"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists the consolidated summary across restarts.
type Store interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snapshot Snapshot) error
}

// Recorder receives every pushed turn for auditing.
type Recorder interface {
	Append(ctx context.Context, turn Turn) error
}

// Consolidator is the summarization backend surface.
type Consolidator interface {
	Chat(ctx context.Context, system, user string, opts ollama.Options) (string, error)
}

// PromptSource resolves prompt texts by key.
type PromptSource interface {
	Get(key prompts.Key) string
}

// Service maintains the rolling conversation memory and its consolidated
// summary. The summary only refreshes when the recent window actually
// changed, so repeated requests during a quiet conversation cost nothing.
type Service interface {
	Push(author, text string)
	Context() string
	Refresh(ctx context.Context) (string, error)
	RefreshAsync(ctx context.Context)
	Turns() []Turn
}

// Config bounds the memory.
type Config struct {
	// Capacity is the ring buffer size.
	Capacity int
	// Window is how many recent turns feed the consolidator.
	Window int
	// TimeCtx decorates the consolidator system prompt.
	TimeCtx timectx.Config
}

var optionsConsolidator = ollama.Options{Temperature: 0.2, TopP: 0.9, RepeatPenalty: 1.1, NumCtx: 4096}

type service struct {
	cfg      Config
	chat     Consolidator
	prompts  PromptSource
	store    Store
	recorder Recorder
	logger   *slog.Logger
	now      timectx.Clock

	mu        sync.Mutex
	turns     []Turn
	summary   string
	lastHash  string
	updatedAt time.Time
}

// NewService is a wire provider for the conversation memory. store and
// recorder may be nil when persistence is disabled. A previously persisted
// snapshot warms the hash gate so a restart does not force a refresh.
func NewService(cfg Config, chat Consolidator, source PromptSource, store Store, recorder Recorder, logger *slog.Logger) Service {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 60
	}
	if cfg.Window <= 0 || cfg.Window > cfg.Capacity {
		cfg.Window = min(20, cfg.Capacity)
	}
	s := &service{
		cfg:      cfg,
		chat:     chat,
		prompts:  source,
		store:    store,
		recorder: recorder,
		logger:   logger.With("component", "contextmem.service"),
		now:      time.Now,
	}
	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if snap, ok, err := store.Load(ctx); err != nil {
			s.logger.Warn("context snapshot load failed", "error", err)
		} else if ok {
			s.summary = snap.Summary
			s.lastHash = snap.Hash
			s.updatedAt = snap.UpdatedAt
		}
	}
	return s
}

func (s *service) Push(author, text string) {
	turn := Turn{At: s.now(), Author: author, Text: text}

	s.mu.Lock()
	s.turns = append(s.turns, turn)
	if len(s.turns) > s.cfg.Capacity {
		s.turns = append(s.turns[:0], s.turns[len(s.turns)-s.cfg.Capacity:]...)
	}
	s.mu.Unlock()

	if s.recorder != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.recorder.Append(ctx, turn); err != nil {
				s.logger.Warn("turn audit append failed", "error", err)
			}
		}()
	}
}

func (s *service) Context() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *service) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Refresh rebuilds the consolidated summary from the recent window. The lock
// is never held across the backend call; concurrent refreshes of the same
// window are harmless and last writer wins.
func (s *service) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	window := s.window()
	current, currentHash := s.summary, s.lastHash
	s.mu.Unlock()

	if len(window) == 0 {
		return "", nil
	}
	h := hashTurns(window)
	if h == currentHash && current != "" {
		return current, nil
	}

	system := timectx.Append(s.prompts.Get(prompts.Stage2Consolidator), s.cfg.TimeCtx, s.now)
	summary, err := s.chat.Chat(ctx, system, consolidatorInput(window), optionsConsolidator)
	if err != nil {
		return "", apperrors.Wrap("context_refresh", "consolidator request failed", err)
	}

	at := s.now()
	s.mu.Lock()
	s.summary = summary
	s.lastHash = h
	s.updatedAt = at
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, Snapshot{Summary: summary, Hash: h, UpdatedAt: at}); err != nil {
			s.logger.Warn("context snapshot save failed", "error", err)
		}
	}
	return summary, nil
}

// RefreshAsync runs Refresh in the background; failures are logged and
// swallowed so an unavailable consolidator never blocks a request.
func (s *service) RefreshAsync(ctx context.Context) {
	go func() {
		summary, err := s.Refresh(ctx)
		if err != nil {
			s.logger.Info("background context refresh failed", "error", err)
			return
		}
		if summary != "" {
			s.logger.Info("context refreshed", "summary_preview", preview(summary, 160))
		}
	}()
}

// window returns a copy of the turns that feed the consolidator. Callers
// must hold the lock.
func (s *service) window() []Turn {
	start := 0
	if len(s.turns) > s.cfg.Window {
		start = len(s.turns) - s.cfg.Window
	}
	out := make([]Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

func hashTurns(turns []Turn) string {
	parts := make([]string, len(turns))
	for i, t := range turns {
		parts[i] = t.Author + ":" + t.Text
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func consolidatorInput(turns []Turn) string {
	parts := make([]string, len(turns))
	for i, t := range turns {
		parts[i] = t.Author + ": " + t.Text
	}
	return "MESSAGES=" + strings.Join(parts, " | ")
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
