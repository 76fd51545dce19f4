package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"
)

// MigrationResult describes a rewrite of a settings file that still used
// legacy keys.
type MigrationResult struct {
	Backup   string
	Changes  []string
	Warnings []string
}

// Migrate rewrites the settings file with canonical keys when it still uses
// the legacy ones. The previous file is kept next to it as a timestamped
// backup. It returns nil, nil when there is nothing to migrate.
func (s *Store) Migrate() (*MigrationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	doc, err := decode(s.path, data)
	if err != nil {
		// Load reports corrupt files; there is nothing to carry over.
		return nil, nil
	}

	changes := legacyChanges(doc)
	if len(changes) == 0 {
		return nil, nil
	}

	result := &MigrationResult{Changes: changes}
	backup, err := backupConfig(s.path, data)
	if err != nil {
		return nil, fmt.Errorf("migration aborted: %w", err)
	}
	result.Backup = backup

	settings, problems := fromMap(doc)
	for _, p := range problems {
		result.Warnings = append(result.Warnings, p.Field+": "+p.Message)
	}
	for _, k := range unknownKeys(doc) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("dropped unknown key %q", k))
	}

	if err := s.write(settings); err != nil {
		return result, err
	}
	s.logger.Info("migrated legacy settings file", "path", s.path, "backup", backup, "changes", len(changes))
	return result, nil
}

func legacyChanges(doc map[string]any) []string {
	var changes []string
	for _, b := range Bounds() {
		if _, ok := doc[b.Legacy]; !ok {
			continue
		}
		if _, ok := doc[b.Key]; ok {
			changes = append(changes, fmt.Sprintf("dropped %s, %s takes precedence", b.Legacy, b.Key))
		} else {
			changes = append(changes, fmt.Sprintf("renamed %s to %s", b.Legacy, b.Key))
		}
	}
	return changes
}

func unknownKeys(doc map[string]any) []string {
	known := make(map[string]bool)
	for _, b := range Bounds() {
		known[b.Key] = true
		known[b.Legacy] = true
	}
	var out []string
	for k := range doc {
		if !known[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// backupConfig copies the current file contents aside.
func backupConfig(configPath string, data []byte) (string, error) {
	timestamp := time.Now().Format("20060102-150405")
	backupPath := configPath + ".backup-" + timestamp

	if err := os.WriteFile(backupPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return backupPath, nil
}
