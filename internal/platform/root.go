package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ConfigFileName is the optional project configuration file.
const ConfigFileName = "inlay.yaml"

// ErrRootNotFound is returned by FindRoot when no marker exists up to the
// filesystem root.
var ErrRootNotFound = errors.New("vault root not found")

// FindRoot walks up from startDir looking for a vault marker: a .inlay
// directory, a .git directory or an inlay.yaml file.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if hasFile(dir, ".inlay") || hasFile(dir, ".git") || hasFile(dir, ConfigFileName) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
