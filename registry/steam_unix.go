//go:build !windows

package registry

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

func steamLibraryFile() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".steam", "root", "config", "libraryfolders.vdf"), nil
}
