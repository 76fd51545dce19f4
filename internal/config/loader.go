package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Store loads and saves Settings at a fixed path.
//
// Load never fails; Save is synchronous and writes the file atomically.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore creates a store for path. A nil logger uses slog.Default().
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file. Missing, unreadable or corrupt files yield
// the defaults; invalid fields are replaced individually. When the file does
// not exist it is created with the defaults.
func (s *Store) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		def := Default()
		if err := s.write(def); err != nil {
			s.logger.Warn("create default settings file", "path", s.path, "error", err)
		} else {
			s.logger.Info("created default settings file", "path", s.path)
		}
		return def
	}
	if err != nil {
		s.logger.Warn("read settings, using defaults", "path", s.path, "error", err)
		return Default()
	}

	doc, err := decode(s.path, data)
	if err != nil {
		s.logger.Warn("parse settings, using defaults", "path", s.path, "error", err)
		return Default()
	}

	settings, problems := fromMap(doc)
	for _, p := range problems {
		s.logger.Warn("ignoring invalid setting", "field", p.Field, "reason", p.Message)
	}
	return settings
}

// Save clamps settings into range and writes them to disk.
func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(settings.Clamp())
}

func (s *Store) write(settings Settings) error {
	data, err := encode(s.path, settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temporary file in the same directory and
// renames it over path, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// decode parses data into a generic document based on the file extension.
func decode(path string, data []byte) (map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeJSON(data)
	case ".toml":
		return decodeTOML(data)
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return autoDetectAndParse(data)
	}
}

// autoDetectAndParse attempts to parse the settings in multiple formats.
func autoDetectAndParse(data []byte) (map[string]any, error) {
	if doc, err := decodeJSON(data); err == nil {
		return doc, nil
	}
	if doc, err := decodeTOML(data); err == nil {
		return doc, nil
	}
	if doc, err := decodeYAML(data); err == nil {
		return doc, nil
	}
	return nil, errors.New("unable to parse settings file (tried JSON, TOML, YAML)")
}

func decodeJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if doc == nil {
		return nil, errors.New("decode JSON: not an object")
	}
	return doc, nil
}

func decodeTOML(data []byte) (map[string]any, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("decode TOML: %w", err)
	}
	return doc, nil
}

func decodeYAML(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	if doc == nil {
		return nil, errors.New("decode YAML: not a mapping")
	}
	return doc, nil
}

// encode serializes settings in the format implied by the file extension.
// Unknown extensions are written as JSON.
func encode(path string, settings Settings) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(settings); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case ".yaml", ".yml":
		return yaml.Marshal(settings)
	default:
		data, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}
