package settings

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/icloudbridge/bridge/internal/crypto"
	"github.com/icloudbridge/bridge/internal/store"
	"github.com/icloudbridge/bridge/internal/visibility"
)

// Snapshot is an immutable view of the settings. Readers hold it for the
// duration of one request; reloads replace it wholesale.
type Snapshot struct {
	Filter       *visibility.Filter
	Tokens       []Token
	RemoteAccess bool
	Port         int
	LoadedAt     time.Time
}

func newSnapshot(f *File) *Snapshot {
	selected := make(map[store.Kind][]string, len(store.Kinds()))
	for _, kind := range store.Kinds() {
		selected[kind] = append([]string(nil), f.SelectedIDs(kind)...)
	}
	return &Snapshot{
		Filter:       visibility.New(selected),
		Tokens:       append([]Token(nil), f.Tokens...),
		RemoteAccess: f.RemoteAccess,
		Port:         f.Port,
		LoadedAt:     time.Now(),
	}
}

// Manager serves the current snapshot and applies changes to the file.
type Manager struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	current atomic.Pointer[Snapshot]
}

// NewManager loads the settings at path, creating defaults on first run.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// Snapshot returns the current settings view. It never returns nil after a
// successful NewManager.
func (m *Manager) Snapshot() *Snapshot {
	return m.current.Load()
}

// Reload re-reads the file and replaces the snapshot. On failure the previous
// snapshot stays in effect.
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reloadLocked()
}

func (m *Manager) reloadLocked() error {
	f, err := Load(m.path)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	m.current.Store(newSnapshot(f))
	return nil
}

// ReloadIfChanged reloads only when the file's modification time moved.
func (m *Manager) ReloadIfChanged() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := os.Stat(m.path)
	if err != nil {
		return false, fmt.Errorf("stat settings: %w", err)
	}
	if info.ModTime().Equal(m.modTime) {
		return false, nil
	}
	if err := m.reloadLocked(); err != nil {
		return false, err
	}
	slog.Info("settings reloaded", "path", m.path)
	return true, nil
}

// Update applies fn to a fresh read of the file, saves it and installs the
// new snapshot. fn's error aborts the write.
func (m *Manager) Update(fn func(f *File) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := Load(m.path)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if err := fn(f); err != nil {
		return err
	}
	if err := Save(m.path, f); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return m.reloadLocked()
}

// Select exposes ids of kind.
func (m *Manager) Select(kind store.Kind, ids ...string) error {
	return m.Update(func(f *File) error { return f.Select(kind, ids...) })
}

// Unselect hides ids of kind.
func (m *Manager) Unselect(kind store.Kind, ids ...string) error {
	return m.Update(func(f *File) error { return f.Unselect(kind, ids...) })
}

// SetRemoteAccess toggles whether non-loopback callers may authenticate.
func (m *Manager) SetRemoteAccess(enabled bool) error {
	return m.Update(func(f *File) error {
		f.RemoteAccess = enabled
		return nil
	})
}

// SetPort changes the persisted listening port. It takes effect on restart.
func (m *Manager) SetPort(port int) error {
	if port <= 0 || port > 65535 {
		return ErrInvalidPort
	}
	return m.Update(func(f *File) error {
		f.Port = port
		return nil
	})
}

// CreateToken generates a token, persists its digest and returns the
// plaintext. The plaintext cannot be recovered afterwards.
func (m *Manager) CreateToken(name string) (string, Token, error) {
	if name == "" {
		return "", Token{}, ErrEmptyName
	}

	plaintext, err := crypto.GenerateToken()
	if err != nil {
		return "", Token{}, err
	}
	digest, err := crypto.HashToken(plaintext)
	if err != nil {
		return "", Token{}, err
	}
	id, err := crypto.GenerateTokenID()
	if err != nil {
		return "", Token{}, err
	}

	tok := Token{
		ID:        id,
		Name:      name,
		Digest:    digest,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := m.Update(func(f *File) error {
		f.Tokens = append(f.Tokens, tok)
		return nil
	}); err != nil {
		return "", Token{}, err
	}
	return plaintext, tok, nil
}

// RevokeToken deletes a token digest by id.
func (m *Manager) RevokeToken(id string) error {
	return m.Update(func(f *File) error { return f.RevokeToken(id) })
}
