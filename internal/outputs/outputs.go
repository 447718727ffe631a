// Package outputs writes hydrated rules that target a file instead of the
// environment, and removes them again.
package outputs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/systmms/lade/internal/logging"
)

// Env is the output key of variables exported to the environment.
const Env = ""

// Split separates the environment output from file outputs.
func Split[T any](outputs map[string]T) (T, map[string]T) {
	env := outputs[Env]
	files := make(map[string]T, len(outputs))
	for path, v := range outputs {
		if path != Env {
			files[path] = v
		}
	}
	return env, files
}

// Paths returns the keys of files in sorted order.
func Paths[T any](files map[string]T) []string {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Encode serializes vars in the format named by path's extension.
func Encode(path string, vars map[string]string) ([]byte, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	switch ext := strings.TrimPrefix(filepath.Ext(path), "."); ext {
	case "json":
		return json.Marshal(vars)
	case "yaml", "yml":
		return yaml.Marshal(vars)
	case "":
		return nil, fmt.Errorf("cannot get extension of file: %s", path)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// Write creates every file with its variables and returns the variable
// names written. A file that already exists is an error and is left
// untouched; files created before the failure are removed again.
func Write(files map[string]map[string]string, logger *logging.Logger) ([]string, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	var (
		names   []string
		written []string
	)
	for _, path := range Paths(files) {
		vars := files[path]
		if err := writeFile(path, vars); err != nil {
			for _, done := range written {
				if rmErr := os.Remove(done); rmErr != nil {
					logger.Warn("Failed to remove %s: %v", done, rmErr)
				}
			}
			return nil, err
		}
		logger.Debug("Wrote %d variables to %s", len(vars), path)
		written = append(written, path)
		for name := range vars {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeFile(path string, vars map[string]string) error {
	data, err := Encode(path, vars)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("file already exists: %s", path)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Remove deletes every path. A missing file is an error.
func Remove(paths []string, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}

	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	for _, path := range sorted {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("file should have existed: %s", path)
			}
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		logger.Debug("Removed %s", path)
	}
	return nil
}
