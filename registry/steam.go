package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// XrdAppID is the Steam application id of GUILTY GEAR Xrd -REVELATOR-.
	XrdAppID = "520440"

	xrdInstallDir = "GUILTY GEAR Xrd -REVELATOR-"
)

var ErrGameFolderNotFound = errors.New("game folder not found in steam libraries")

// ParseLibraryFolders scans a Steam libraryfolders.vdf and returns the
// library path that lists appID.
func ParseLibraryFolders(r io.Reader, appID string) (string, error) {
	quotedID := `"` + appID + `"`
	lastPath := ""

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ReplaceAll(scanner.Text(), "\t", " "))
		switch {
		case strings.HasPrefix(line, `"path"`):
			p := strings.TrimSpace(strings.TrimPrefix(line, `"path"`))
			p = strings.Trim(p, `"`)
			lastPath = strings.ReplaceAll(p, `\\`, `\`)
		case strings.HasPrefix(line, quotedID):
			if lastPath == "" {
				return "", ErrGameFolderNotFound
			}
			return lastPath, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read library folders: %w", err)
	}
	return "", ErrGameFolderNotFound
}

// GameFolderFromLibrary returns the game install path inside a Steam library.
func GameFolderFromLibrary(library string) string {
	return filepath.Join(library, "steamapps", "common", xrdInstallDir)
}

// BinariesDir is the folder holding GuiltyGearXrd.exe.
func BinariesDir(gameFolder string) string {
	return filepath.Join(gameFolder, "Binaries", "Win32")
}

// GameFolderFromVDF reads the given libraryfolders.vdf file.
func GameFolderFromVDF(vdfPath string) (string, error) {
	f, err := os.Open(vdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open steam library file: %w", err)
	}
	defer f.Close()

	library, err := ParseLibraryFolders(f, XrdAppID)
	if err != nil {
		return "", err
	}
	return GameFolderFromLibrary(library), nil
}

// LocateGameFolder finds the game through the local Steam installation.
func LocateGameFolder() (string, error) {
	vdf, err := steamLibraryFile()
	if err != nil {
		return "", err
	}
	return GameFolderFromVDF(vdf)
}

// ResolveGameFolder returns the cached game folder, discovering and caching
// it with locate when unset.
func (r *Registry) ResolveGameFolder(locate func() (string, error)) (string, error) {
	if r.GameFolder != "" {
		return r.GameFolder, nil
	}
	if locate == nil {
		locate = LocateGameFolder
	}
	folder, err := locate()
	if err != nil {
		return "", err
	}
	r.GameFolder = folder
	return folder, nil
}
