package installer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrdtools/xrdmods/registry"
)

func TestPlatformFor(t *testing.T) {
	assert.Equal(t, Windows, PlatformFor("windows"))
	assert.Equal(t, Unix, PlatformFor("linux"))
	assert.Equal(t, Unix, PlatformFor("darwin"))
	assert.Equal(t, Unix, PlatformFor("freebsd"))
	assert.Equal(t, Other, PlatformFor("js"))
	assert.Equal(t, Other, PlatformFor("plan9"))
}

func TestProfileAssetNames(t *testing.T) {
	testCases := []struct {
		name     string
		kind     registry.Kind
		platform Platform
		tag      string
		expected []string
	}{
		{"hitbox windows", registry.HitboxOverlay, Windows, "6.27", []string{"ggxrd_hitbox_overlay.zip"}},
		{"hitbox unix", registry.HitboxOverlay, Unix, "6.27", []string{"ggxrd_hitbox_overlay.zip"}},
		{"hitbox other", registry.HitboxOverlay, Other, "6.27", []string{"ggxrd_hitbox_overlay.zip"}},
		{"wakeup tool", registry.WakeupTool, Unix, "v1.5", []string{"GGXrdReversalTool.v1.5.zip", "GGXrdReversalTool-v1.5.zip"}},
		{"loading times windows", registry.FasterLoadingTimes, Windows, "1", []string{"GGXrdFasterLoadingTimes.exe"}},
		{"loading times unix", registry.FasterLoadingTimes, Unix, "1", []string{"GGXrdFasterLoadingTimes_linux"}},
		{"gamepad windows", registry.BackgroundGamepad, Windows, "1", []string{"GGXrdBackgroundGamepad.exe"}},
		{"gamepad unix", registry.BackgroundGamepad, Unix, "1", []string{"GGXrdBackgroundGamepad_linux"}},
		{"mirror color", registry.MirrorColorSelect, Other, "1", []string{"GGXrdMirrorColorSelect.zip"}},
		{"unknown", registry.Unknown, Windows, "1", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ProfileFor(tc.kind, tc.platform)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p.AssetNames(tc.tag))
		})
	}
}

func TestProfileUnsupportedPlatform(t *testing.T) {
	for _, kind := range []registry.Kind{registry.FasterLoadingTimes, registry.BackgroundGamepad} {
		_, err := ProfileFor(kind, Other)
		assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	}

	p, err := ProfileFor(registry.HitboxOverlay, Other)
	require.NoError(t, err)
	assert.True(t, p.Unsupported)
	assert.False(t, p.HasProcedure())
}

func TestProfileProcedures(t *testing.T) {
	p, err := ProfileFor(registry.HitboxOverlay, Windows)
	require.NoError(t, err)
	assert.Equal(t, "ggxrd_hitbox_patcher.exe", p.Installer)
	assert.Equal(t, []string{"ggxrd_hitbox_overlay.dll"}, p.CopyFiles)

	p, err = ProfileFor(registry.HitboxOverlay, Unix)
	require.NoError(t, err)
	assert.Equal(t, "ggxrd_hitbox_patcher_linux", p.Installer)
	assert.Equal(t, "\n/games/xrd/Binaries/Win32/GuiltyGearXrd.exe\n\n", p.StdinScript("/games/xrd/Binaries/Win32"))

	for _, kind := range []registry.Kind{registry.WakeupTool, registry.MirrorColorSelect, registry.Unknown} {
		p, err := ProfileFor(kind, Unix)
		require.NoError(t, err)
		assert.False(t, p.HasProcedure(), kind.String())
	}
}
