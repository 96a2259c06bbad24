package installer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrdtools/xrdmods/registry"
)

type fakeRunner struct {
	code  int
	err   error
	calls []Command
}

func (f *fakeRunner) Run(ctx context.Context, cmd Command) (int, error) {
	f.calls = append(f.calls, cmd)
	return f.code, f.err
}

// patchFixture lays out an add-on folder and a game folder.
func patchFixture(t *testing.T, files ...string) (modDir, gameFolder string) {
	t.Helper()
	root := t.TempDir()
	modDir = filepath.Join(root, "kkots", "ggxrd_hitbox_overlay_2211")
	gameFolder = filepath.Join(root, "game")
	require.NoError(t, os.MkdirAll(modDir, 0755))
	require.NoError(t, os.MkdirAll(registry.BinariesDir(gameFolder), 0755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(modDir, f), []byte(f), 0644))
	}
	return modDir, gameFolder
}

// fromUint32 mimics how Windows exit statuses surface through ExitCode.
func fromUint32(v uint32) int {
	return int(v)
}

func hitboxAddOn() *registry.AddOn {
	a := registry.NewAddOn("kkots", "ggxrd_hitbox_overlay_2211", registry.HitboxOverlay)
	a.AutoPatch = true
	return a
}

func TestPatchSuccess(t *testing.T) {
	modDir, game := patchFixture(t, "ggxrd_hitbox_overlay.dll", "ggxrd_hitbox_patcher_linux")
	runner := &fakeRunner{}
	a := hitboxAddOn()

	res := NewPatcher(runner, Unix, time.Minute, nil).Patch(context.Background(), a, modDir, game)

	require.NoError(t, res.Err)
	assert.Equal(t, Success, res.State)
	assert.True(t, a.Patched)
	assert.Empty(t, res.CopyErrors)
	assert.FileExists(t, filepath.Join(registry.BinariesDir(game), "ggxrd_hitbox_overlay.dll"))

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, filepath.Join(modDir, "ggxrd_hitbox_patcher_linux"), call.Path)
	assert.Equal(t, modDir, call.Dir)
	assert.Equal(t, "\n"+registry.BinariesDir(game)+"/GuiltyGearXrd.exe\n\n", call.Stdin)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(call.Path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	}
}

func TestPatchIsIdempotent(t *testing.T) {
	modDir, game := patchFixture(t, "ggxrd_hitbox_overlay.dll", "ggxrd_hitbox_patcher.exe")
	runner := &fakeRunner{}
	a := hitboxAddOn()
	p := NewPatcher(runner, Windows, 0, nil)

	first := p.Patch(context.Background(), a, modDir, game)
	second := p.Patch(context.Background(), a, modDir, game)

	assert.Equal(t, Success, first.State)
	assert.Equal(t, AlreadyPatched, second.State)
	assert.Len(t, runner.calls, 1)
}

func TestPatchExitCodes(t *testing.T) {
	testCases := []struct {
		name        string
		code        int
		remediation string
	}{
		{"missing 32-bit runtime", -1073741701, "32-bit DLLs"},
		{"missing 32-bit runtime unsigned", fromUint32(0xC000007B), "32-bit DLLs"},
		{"missing 64-bit runtime", -1073741515, "64-bit DLLs"},
		{"missing 64-bit runtime unsigned", fromUint32(0xC0000135), "64-bit DLLs"},
		{"other", 3, "can be run manually"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			modDir, game := patchFixture(t, "ggxrd_hitbox_overlay.dll", "ggxrd_hitbox_patcher.exe")
			a := hitboxAddOn()

			res := NewPatcher(&fakeRunner{code: tc.code}, Windows, 0, nil).Patch(context.Background(), a, modDir, game)

			assert.Equal(t, Failed, res.State)
			assert.ErrorIs(t, res.Err, ErrInstallerFailed)
			assert.Contains(t, res.Remediation, tc.remediation)
			assert.Contains(t, res.Remediation, vcRedistURL)
			assert.False(t, a.Patched)
		})
	}
}

func TestPatchNotApplicableKinds(t *testing.T) {
	for _, kind := range []registry.Kind{registry.WakeupTool, registry.MirrorColorSelect, registry.Unknown} {
		t.Run(kind.String(), func(t *testing.T) {
			runner := &fakeRunner{}
			a := registry.NewAddOn("kkots", "x", kind)
			a.AutoPatch = true

			res := NewPatcher(runner, Unix, 0, nil).Patch(context.Background(), a, t.TempDir(), t.TempDir())

			assert.Equal(t, NotApplicable, res.State)
			assert.False(t, a.Patched)
			assert.Empty(t, runner.calls)
		})
	}
}

func TestPatchUnsupportedPlatform(t *testing.T) {
	modDir, game := patchFixture(t, "ggxrd_hitbox_overlay.dll")
	runner := &fakeRunner{}

	res := NewPatcher(runner, Other, 0, nil).Patch(context.Background(), hitboxAddOn(), modDir, game)
	assert.Equal(t, Failed, res.State)
	assert.ErrorIs(t, res.Err, ErrUnsupportedPlatform)

	a := registry.NewAddOn("kkots", "GGXrdFasterLoadingTimes", registry.FasterLoadingTimes)
	res = NewPatcher(runner, Other, 0, nil).Patch(context.Background(), a, modDir, game)
	assert.ErrorIs(t, res.Err, ErrUnsupportedPlatform)
	assert.Empty(t, runner.calls)
}

func TestPatchCopyFailureDoesNotAbort(t *testing.T) {
	modDir, game := patchFixture(t, "ggxrd_hitbox_patcher_linux")
	runner := &fakeRunner{}
	a := hitboxAddOn()

	res := NewPatcher(runner, Unix, 0, nil).Patch(context.Background(), a, modDir, game)

	assert.Equal(t, Success, res.State)
	assert.Len(t, res.CopyErrors, 1)
	assert.Len(t, runner.calls, 1)
	assert.True(t, a.Patched)
}

func TestPatchMissingInstaller(t *testing.T) {
	modDir, game := patchFixture(t, "ggxrd_hitbox_overlay.dll")
	runner := &fakeRunner{}

	res := NewPatcher(runner, Unix, 0, nil).Patch(context.Background(), hitboxAddOn(), modDir, game)
	assert.Equal(t, Failed, res.State)
	assert.ErrorIs(t, res.Err, ErrInstallerSpawn)
	assert.Empty(t, runner.calls)
}

func TestPatchMissingGameFolder(t *testing.T) {
	modDir, _ := patchFixture(t, "ggxrd_hitbox_patcher_linux")

	res := NewPatcher(&fakeRunner{}, Unix, 0, nil).Patch(context.Background(), hitboxAddOn(), modDir, "")
	assert.ErrorIs(t, res.Err, registry.ErrGameFolderNotFound)
}

func TestPatchRunnerTimeout(t *testing.T) {
	modDir, game := patchFixture(t, "ggxrd_hitbox_overlay.dll", "ggxrd_hitbox_patcher_linux")
	a := hitboxAddOn()

	res := NewPatcher(&fakeRunner{err: ErrInstallerTimeout}, Unix, time.Second, nil).Patch(context.Background(), a, modDir, game)
	assert.Equal(t, Failed, res.State)
	assert.ErrorIs(t, res.Err, ErrInstallerTimeout)
	assert.False(t, a.Patched)
}

func TestClassifyExitCode(t *testing.T) {
	ok, msg := ClassifyExitCode(0)
	assert.True(t, ok)
	assert.Empty(t, msg)

	ok, _ = ClassifyExitCode(1)
	assert.False(t, ok)

	assert.Equal(t, ExitCodeMissingX86Runtime, NormalizeExitCode(fromUint32(0xC000007B)))
	assert.Equal(t, ExitCodeMissingX64Runtime, NormalizeExitCode(fromUint32(0xC0000135)))
	assert.Equal(t, 1, NormalizeExitCode(1))
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestExecRunnerFeedsStdinAndReportsExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	script := writeScript(t, dir, "installer", "read first\nread exe\necho \"got:$exe\"\nexit 7\n")

	var stdout bytes.Buffer
	r := &ExecRunner{Stdout: &stdout, Stderr: &stdout}
	code, err := r.Run(context.Background(), Command{Path: script, Dir: dir, Stdin: "\n/game/Binaries/Win32/GuiltyGearXrd.exe\n\n"})

	require.NoError(t, err)
	assert.Equal(t, 7, code)
	assert.Contains(t, stdout.String(), "got:/game/Binaries/Win32/GuiltyGearXrd.exe")
}

func TestExecRunnerTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	script := writeScript(t, dir, "installer", "exec sleep 30\n")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	_, err := r.Run(ctx, Command{Path: script, Dir: dir})
	assert.ErrorIs(t, err, ErrInstallerTimeout)
}

func TestExecRunnerSpawnFailure(t *testing.T) {
	r := &ExecRunner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	_, err := r.Run(context.Background(), Command{Path: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, ErrInstallerSpawn)
}
