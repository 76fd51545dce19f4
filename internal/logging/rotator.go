package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileRotator is an io.Writer over Config.FilePath that starts a new file
// when the current one would exceed MaxSize megabytes or the day changes.
// Rotated files are named <stem>-YYYYMMDD-HHMMSS<ext>, optionally gzipped,
// and pruned by MaxBackups and MaxAge.
type FileRotator struct {
	config *Config

	mu      sync.Mutex
	file    *os.File
	size    int64
	opened  time.Time
	pruning sync.WaitGroup
}

// NewFileRotator opens (or creates) the log file and its directory.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o750); err != nil {
		return nil, err
	}
	r := &FileRotator{config: cfg}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) open() error {
	f, err := os.OpenFile(r.config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	r.file, r.size, r.opened = f, info.Size(), time.Now()
	return nil
}

// nameParts splits the live path into directory, stem and extension.
func (r *FileRotator) nameParts() (dir, stem, ext string) {
	base := filepath.Base(r.config.FilePath)
	ext = filepath.Ext(base)
	return filepath.Dir(r.config.FilePath), strings.TrimSuffix(base, ext), ext
}

func (r *FileRotator) rotatedGlob() string {
	dir, stem, ext := r.nameParts()
	return filepath.Join(dir, stem+"-*"+ext+"*")
}

func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	if r.due(int64(len(p)), time.Now()) {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// due reports whether writing n more bytes at now needs a fresh file. An
// empty file is never rotated for size.
func (r *FileRotator) due(n int64, now time.Time) bool {
	if r.size > 0 && r.size+n > r.config.MaxSize<<20 {
		return true
	}
	y1, m1, d1 := r.opened.Date()
	y2, m2, d2 := now.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close current log: %w", err)
	}
	r.file = nil

	dir, stem, ext := r.nameParts()
	rotated := filepath.Join(dir, stem+"-"+time.Now().Format("20060102-150405")+ext)
	if err := os.Rename(r.config.FilePath, rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}
	if err := r.open(); err != nil {
		return err
	}

	r.pruning.Add(1)
	go func() {
		defer r.pruning.Done()
		if r.config.Compress {
			gzipFile(rotated)
		}
		r.prune(time.Now())
	}()
	return nil
}

// gzipFile replaces path with path.gz; on any failure the original stays.
func gzipFile(path string) {
	in, err := os.Open(path)
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(path)

	_, err = io.Copy(gz, in)
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path + ".gz")
		return
	}
	in.Close()
	os.Remove(path)
}

// prune keeps the newest MaxBackups rotated files that are younger than
// MaxAge days.
func (r *FileRotator) prune(now time.Time) {
	matches, err := filepath.Glob(r.rotatedGlob())
	if err != nil {
		return
	}

	type aged struct {
		path string
		mod  time.Time
	}
	files := make([]aged, 0, len(matches))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil {
			files = append(files, aged{m, info.ModTime()})
		}
	}
	// Newest first.
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })

	cutoff := now.AddDate(0, 0, -r.config.MaxAge)
	for i, f := range files {
		if i >= r.config.MaxBackups || (r.config.MaxAge > 0 && f.mod.Before(cutoff)) {
			os.Remove(f.path)
		}
	}
}

// Close waits for pending compression and closes the live file.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruning.Wait()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Sync flushes the live file.
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

// LogFiles lists the live file followed by the rotated ones.
func (r *FileRotator) LogFiles() ([]string, error) {
	files := []string{r.config.FilePath}
	matches, err := filepath.Glob(r.rotatedGlob())
	if err != nil {
		return files, err
	}
	return append(files, matches...), nil
}
