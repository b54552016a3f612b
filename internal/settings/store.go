// Package settings owns the module's single persisted setting, the registry
// API key, and notifies listeners whenever it changes.
package settings

import (
	"strings"
	"sync"

	"modnotifier/internal/config"
	"modnotifier/internal/debug"
	appErrors "modnotifier/internal/errors"
)

// ModuleID scopes the settings owned by this tool.
const ModuleID = "module-outdated-notifier"

// Backend persists and loads the API key.
type Backend interface {
	LoadAPIKey() string
	SaveAPIKey(key string) error
}

// ChangeFunc receives the new API key after it changed.
type ChangeFunc func(key string)

// Store holds the API key and fans changes out to listeners.
type Store struct {
	backend Backend

	mu        sync.Mutex
	last      string
	listeners []ChangeFunc
}

// NewStore creates a store over the given backend. A nil backend uses the
// application config.
func NewStore(backend Backend) *Store {
	if backend == nil {
		backend = ConfigBackend{}
	}
	return &Store{backend: backend, last: strings.TrimSpace(backend.LoadAPIKey())}
}

// APIKey returns the configured key, or an empty string.
func (s *Store) APIKey() string {
	return strings.TrimSpace(s.backend.LoadAPIKey())
}

// SetAPIKey persists the key and notifies every listener, even when the
// value did not change.
func (s *Store) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if err := s.backend.SaveAPIKey(key); err != nil {
		return appErrors.New(appErrors.CodeConfigurationError, "save api key", err)
	}
	s.mu.Lock()
	s.last = key
	s.mu.Unlock()
	debug.Logger().Info().Str("module", ModuleID).Bool("empty", key == "").Msg("api key updated")
	s.notify(key)
	return nil
}

// OnChange registers a listener for key changes.
func (s *Store) OnChange(fn ChangeFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload re-reads the key from the backend and notifies listeners only if it
// differs from the last known value. Used for edits made outside the process.
func (s *Store) Reload() bool {
	key := s.APIKey()
	s.mu.Lock()
	if key == s.last {
		s.mu.Unlock()
		return false
	}
	s.last = key
	s.mu.Unlock()
	debug.Logger().Info().Str("module", ModuleID).Msg("api key changed on disk")
	s.notify(key)
	return true
}

// Watch reloads the key whenever the config file changes on disk.
func (s *Store) Watch() error {
	return config.WatchAPIKey(func(string) { s.Reload() })
}

func (s *Store) notify(key string) {
	s.mu.Lock()
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(key)
	}
}

// ConfigBackend stores the key in the application config files.
type ConfigBackend struct{}

// LoadAPIKey implements Backend.
func (ConfigBackend) LoadAPIKey() string {
	return config.GetString(config.KeyAPIKey)
}

// SaveAPIKey implements Backend.
func (ConfigBackend) SaveAPIKey(key string) error {
	return config.SaveAPIKey(key)
}
