// Package filex prepares the on-disk locations the client writes to.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir, relative paths resolved against the working
// directory, and returns its absolute path. Keys live there, so group and
// other get no access.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// EnsureParent creates the directory holding a database file. In-memory and
// URI-style sqlite names are returned untouched.
func EnsureParent(path string) (string, error) {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, err := EnsureDir(filepath.Dir(abs)); err != nil {
		return "", err
	}
	return abs, nil
}
