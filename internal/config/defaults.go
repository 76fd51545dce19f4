package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// FileExt is the extension of the settings file written next to the executable.
const FileExt = ".json"

// DefaultPath returns the settings file for the running executable: same
// directory, same base name, ".json" extension (spot-cursor.exe -> spot-cursor.json).
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return PathForExecutable(exe)
}

// PathForExecutable derives the settings file path for the executable at exe.
func PathForExecutable(exe string) (string, error) {
	base := filepath.Base(exe)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "", errors.New("config: cannot derive settings name from executable path")
	}
	return filepath.Join(filepath.Dir(exe), stem+FileExt), nil
}
