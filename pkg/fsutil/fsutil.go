// Package fsutil provides directory and timestamp helpers shared by the
// database builder and the session logger.
package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// EnsureDir creates the directory (and parents) if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists reports whether the path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether the path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Timestamp returns the current time formatted for file names,
// e.g. 20240131_154210.
func Timestamp() string {
	return time.Now().Format("20060102_150405")
}

// TimestampHuman returns the current time formatted for log lines,
// e.g. 2024-01-31 15:42:10.
func TimestampHuman() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// ListSubdirs returns the immediate subdirectories of root, sorted by
// name. A missing root yields an empty list.
func ListSubdirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ListImageFiles returns the files in dir whose extension matches one of
// the given extensions (case-insensitive, leading dot required), sorted
// by name. A missing dir yields an empty list.
func ListImageFiles(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
