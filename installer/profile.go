package installer

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/xrdtools/xrdmods/registry"
)

// Platform is the host family an installation procedure targets.
type Platform int

const (
	Other Platform = iota
	Windows
	Unix
)

func (p Platform) String() string {
	switch p {
	case Windows:
		return "windows"
	case Unix:
		return "unix"
	default:
		return "other"
	}
}

// PlatformFor maps a GOOS value to a Platform.
func PlatformFor(goos string) Platform {
	switch goos {
	case "windows":
		return Windows
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly",
		"solaris", "illumos", "aix", "android":
		return Unix
	default:
		return Other
	}
}

func CurrentPlatform() Platform {
	return PlatformFor(runtime.GOOS)
}

var ErrUnsupportedPlatform = errors.New("add-on is not supported on this platform")

// TagPlaceholder is replaced by the release tag in asset names.
const TagPlaceholder = "{tag}"

// ExePlaceholder is replaced by the game executable path in stdin scripts.
const ExePlaceholder = "{exe}"

const gameExecutable = "GuiltyGearXrd.exe"

// Profile describes how an add-on kind is downloaded and installed on a
// platform.
type Profile struct {
	// Assets are the release asset names to download.
	Assets []string
	// CopyFiles are copied from the add-on folder into Binaries/Win32.
	CopyFiles []string
	// Installer is the executable run to patch the game; empty means the
	// kind has no installation procedure.
	Installer string
	// Script is written to the installer's standard input.
	Script string
	// Unsupported marks kinds that can be downloaded but not installed.
	Unsupported bool
}

type profileKey struct {
	kind     registry.Kind
	platform Platform
}

const defaultScript = "\n" + ExePlaceholder + "\n\n"

var profiles = map[profileKey]Profile{
	{registry.HitboxOverlay, Windows}: {
		Assets:    []string{"ggxrd_hitbox_overlay.zip"},
		CopyFiles: []string{"ggxrd_hitbox_overlay.dll"},
		Installer: "ggxrd_hitbox_patcher.exe",
		Script:    defaultScript,
	},
	{registry.HitboxOverlay, Unix}: {
		Assets:    []string{"ggxrd_hitbox_overlay.zip"},
		CopyFiles: []string{"ggxrd_hitbox_overlay.dll"},
		Installer: "ggxrd_hitbox_patcher_linux",
		Script:    defaultScript,
	},
	{registry.HitboxOverlay, Other}: {
		Assets:      []string{"ggxrd_hitbox_overlay.zip"},
		Unsupported: true,
	},
	{registry.FasterLoadingTimes, Windows}: {
		Assets:    []string{"GGXrdFasterLoadingTimes.exe"},
		Installer: "GGXrdFasterLoadingTimes.exe",
		Script:    defaultScript,
	},
	{registry.FasterLoadingTimes, Unix}: {
		Assets:    []string{"GGXrdFasterLoadingTimes_linux"},
		Installer: "GGXrdFasterLoadingTimes_linux",
		Script:    defaultScript,
	},
	{registry.BackgroundGamepad, Windows}: {
		Assets:    []string{"GGXrdBackgroundGamepad.exe"},
		Installer: "GGXrdBackgroundGamepad.exe",
		Script:    defaultScript,
	},
	{registry.BackgroundGamepad, Unix}: {
		Assets:    []string{"GGXrdBackgroundGamepad_linux"},
		Installer: "GGXrdBackgroundGamepad_linux",
		Script:    defaultScript,
	},
}

// Platform-independent kinds.
var anyPlatformProfiles = map[registry.Kind]Profile{
	registry.WakeupTool: {
		Assets: []string{"GGXrdReversalTool." + TagPlaceholder + ".zip", "GGXrdReversalTool-" + TagPlaceholder + ".zip"},
	},
	registry.MirrorColorSelect: {
		Assets: []string{"GGXrdMirrorColorSelect.zip"},
	},
	registry.Unknown: {},
}

// ProfileFor returns the profile of kind on platform.
func ProfileFor(kind registry.Kind, platform Platform) (Profile, error) {
	if p, ok := profiles[profileKey{kind, platform}]; ok {
		return p, nil
	}
	if p, ok := anyPlatformProfiles[kind]; ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("%w: %s on %s", ErrUnsupportedPlatform, kind, platform)
}

// AssetNames expands the asset whitelist for a release tag.
func (p Profile) AssetNames(tag string) []string {
	names := make([]string, 0, len(p.Assets))
	for _, a := range p.Assets {
		names = append(names, strings.ReplaceAll(a, TagPlaceholder, tag))
	}
	return names
}

// HasProcedure reports whether the profile runs an installer.
func (p Profile) HasProcedure() bool {
	return p.Installer != ""
}

// StdinScript renders the installer input for the given Binaries/Win32 folder.
func (p Profile) StdinScript(binariesDir string) string {
	exe := binariesDir + "/" + gameExecutable
	return strings.ReplaceAll(p.Script, ExePlaceholder, exe)
}
