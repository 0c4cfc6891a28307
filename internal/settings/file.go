// Package settings owns the bridge's persisted settings: the exposure
// selection, access-token digests, the listening port and the remote-access
// flag. The file is YAML, created with defaults on first run and always
// rewritten atomically with 0600 permissions.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/icloudbridge/bridge/internal/store"
)

// DefaultPort is the port used when the settings file does not name one.
const DefaultPort = 31337

var (
	ErrEmptyPath     = errors.New("settings path is empty")
	ErrUnknownKind   = errors.New("unknown entity kind")
	ErrInvalidPort   = errors.New("port must be between 1 and 65535")
	ErrTokenNotFound = errors.New("token not found")
	ErrEmptyName     = errors.New("token name is empty")
)

// Selection holds the selected identifiers per kind.
type Selection struct {
	Lists     []string `yaml:"lists"`
	Calendars []string `yaml:"calendars"`
	Albums    []string `yaml:"albums"`
}

func (s *Selection) ids(kind store.Kind) (*[]string, error) {
	switch kind {
	case store.KindList:
		return &s.Lists, nil
	case store.KindCalendar:
		return &s.Calendars, nil
	case store.KindAlbum:
		return &s.Albums, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Token is a persisted access token. Only the argon2id digest is stored.
type Token struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Digest    string    `yaml:"digest"`
	CreatedAt time.Time `yaml:"created_at"`
}

// File is the on-disk settings document.
type File struct {
	Port         int       `yaml:"port"`
	RemoteAccess bool      `yaml:"remote_access"`
	Selected     Selection `yaml:"selected"`
	Tokens       []Token   `yaml:"tokens"`
}

// DefaultFile returns the first-run settings: nothing exposed, no tokens,
// loopback only.
func DefaultFile() *File {
	return &File{
		Port:     DefaultPort,
		Selected: Selection{Lists: []string{}, Calendars: []string{}, Albums: []string{}},
		Tokens:   []Token{},
	}
}

// Normalize fills missing values and removes duplicate selections.
func (f *File) Normalize() {
	if f.Port <= 0 || f.Port > 65535 {
		f.Port = DefaultPort
	}
	for _, kind := range store.Kinds() {
		ids, _ := f.Selected.ids(kind)
		*ids = dedupe(*ids)
	}
	if f.Tokens == nil {
		f.Tokens = []Token{}
	}
}

// Select adds ids to the selection for kind.
func (f *File) Select(kind store.Kind, ids ...string) error {
	list, err := f.Selected.ids(kind)
	if err != nil {
		return err
	}
	*list = dedupe(append(*list, ids...))
	return nil
}

// Unselect removes ids from the selection for kind.
func (f *File) Unselect(kind store.Kind, ids ...string) error {
	list, err := f.Selected.ids(kind)
	if err != nil {
		return err
	}
	*list = slices.DeleteFunc(*list, func(id string) bool {
		return slices.Contains(ids, id)
	})
	return nil
}

// SelectedIDs returns the selection for kind.
func (f *File) SelectedIDs(kind store.Kind) []string {
	list, err := f.Selected.ids(kind)
	if err != nil {
		return nil
	}
	return *list
}

// RevokeToken removes the token with the given id.
func (f *File) RevokeToken(id string) error {
	n := len(f.Tokens)
	f.Tokens = slices.DeleteFunc(f.Tokens, func(t Token) bool { return t.ID == id })
	if len(f.Tokens) == n {
		return ErrTokenNotFound
	}
	return nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Load reads the settings file at path. A missing file is created with the
// defaults.
func Load(path string) (*File, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f := DefaultFile()
			if err := Save(path, f); err != nil {
				return f, err
			}
			return f, nil
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.Normalize()

	return &f, nil
}

// Save writes f to path through a temp file and rename.
func Save(path string, f *File) error {
	if path == "" {
		return ErrEmptyPath
	}
	if f == nil {
		return errors.New("settings is nil")
	}

	f.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bridge-settings-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
