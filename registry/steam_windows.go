//go:build windows

package registry

import (
	"fmt"
	"path/filepath"

	winreg "golang.org/x/sys/windows/registry"
)

const steamRegistryKey = `SOFTWARE\Wow6432Node\Valve\Steam`

func steamLibraryFile() (string, error) {
	k, err := winreg.OpenKey(winreg.LOCAL_MACHINE, steamRegistryKey, winreg.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("failed to open steam registry key: %w", err)
	}
	defer k.Close()

	installPath, _, err := k.GetStringValue("InstallPath")
	if err != nil {
		return "", fmt.Errorf("failed to read steam install path: %w", err)
	}
	return filepath.Join(installPath, "config", "libraryfolders.vdf"), nil
}
