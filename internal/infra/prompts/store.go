package prompts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Key identifies one external prompt file.
type Key string

const (
	Stage1System        Key = "stage1_system"
	Stage1RulesPositive Key = "stage1_rules_positive"
	Stage1RulesNegative Key = "stage1_rules_negative"
	Stage2ProfilePos    Key = "stage2_profile_positive"
	Stage2ProfileNeg    Key = "stage2_profile_negative"
	Stage2Corrector     Key = "stage2_corrector"
	Stage2Consolidator  Key = "stage2_consolidator"
)

var files = map[Key]string{
	Stage1System:        "stage1_system.txt",
	Stage1RulesPositive: "stage1_rules_positive.txt",
	Stage1RulesNegative: "stage1_rules_negative.txt",
	Stage2ProfilePos:    "stage2_profile_positive.txt",
	Stage2ProfileNeg:    "stage2_profile_negative.txt",
	Stage2Corrector:     "stage2_corrector.txt",
	Stage2Consolidator:  "stage2_consolidator.txt",
}

// Keys returns every known prompt key.
func Keys() []Key {
	out := make([]Key, 0, len(files))
	for k := range files {
		out = append(out, k)
	}
	return out
}

// Store serves prompt texts from a directory of plain text files.
type Store struct {
	dir    string
	strict bool
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[Key]string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore loads every prompt file from dir. In strict mode a missing file
// is a boot failure. When autoReload is set, file changes are picked up via
// an fsnotify watcher.
func NewStore(dir string, strict, autoReload bool, logger *slog.Logger) (*Store, error) {
	s := &Store{
		dir:    dir,
		strict: strict,
		logger: logger.With("component", "prompts.store"),
		cache:  make(map[Key]string, len(files)),
	}

	for key := range files {
		if err := s.reload(key); err != nil {
			return nil, err
		}
	}
	s.logger.Info("prompts loaded", "dir", dir, "strict", strict, "auto_reload", autoReload)

	if autoReload {
		if err := s.watch(); err != nil {
			// watcher is best-effort; stale prompts beat a dead server
			s.logger.Warn("prompt watcher unavailable", "error", err)
		}
	}
	return s, nil
}

// Get returns the cached text for key, empty when unknown or missing in
// non-strict mode.
func (s *Store) Get(key Key) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[key]
}

// Path returns the absolute file path backing key.
func (s *Store) Path(key Key) string {
	return filepath.Join(s.dir, files[key])
}

// Close stops the reload watcher, if any.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}

func (s *Store) reload(key Key) error {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if s.strict {
			return fmt.Errorf("missing prompt file: %s: %w", path, err)
		}
		s.logger.Warn("prompt file unreadable, serving empty text", "path", path, "error", err)
		s.mu.Lock()
		s.cache[key] = ""
		s.mu.Unlock()
		return nil
	}

	text := strings.TrimSpace(strings.TrimPrefix(string(data), "\uFEFF"))
	s.mu.Lock()
	s.cache[key] = text
	s.mu.Unlock()
	return nil
}

func (s *Store) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case <-s.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				name := filepath.Base(event.Name)
				for key, file := range files {
					if file != name {
						continue
					}
					if err := s.reload(key); err != nil {
						s.logger.Warn("prompt reload failed", "key", string(key), "error", err)
						continue
					}
					s.logger.Info("prompt reloaded", "key", string(key))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("prompt watcher error", "error", err)
			}
		}
	}()
	return nil
}
