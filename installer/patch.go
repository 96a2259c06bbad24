package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xrdtools/xrdmods/logger"
	"github.com/xrdtools/xrdmods/registry"
)

// PatchState tracks progress through one patch attempt.
type PatchState int

const (
	NotApplicable PatchState = iota
	AlreadyPatched
	Preparing
	CopyingFiles
	Executing
	Classifying
	Success
	Failed
)

func (s PatchState) String() string {
	switch s {
	case NotApplicable:
		return "skipped (no procedure)"
	case AlreadyPatched:
		return "already patched"
	case Preparing:
		return "preparing"
	case CopyingFiles:
		return "copying files"
	case Executing:
		return "executing"
	case Classifying:
		return "classifying"
	case Success:
		return "patched"
	default:
		return "failed"
	}
}

// Windows NTSTATUS codes reported when the installer cannot load its runtime.
const (
	ExitCodeMissingX86Runtime = -1073741701 // 0xC000007B
	ExitCodeMissingX64Runtime = -1073741515 // 0xC0000135
)

const vcRedistURL = "https://learn.microsoft.com/en-us/cpp/windows/latest-supported-vc-redist?view=msvc-170#latest-microsoft-visual-c-redistributable-version"

var ErrInstallerFailed = errors.New("installer exited with an error")

// PatchResult is the outcome of one Patch call.
type PatchResult struct {
	State       PatchState
	ExitCode    int
	Remediation string
	CopyErrors  []error
	Err         error
}

// Patcher copies add-on files into the game and runs the add-on installer.
type Patcher struct {
	runner   Runner
	platform Platform
	timeout  time.Duration
	logger   *logger.Logger
}

func NewPatcher(runner Runner, platform Platform, timeout time.Duration, log *logger.Logger) *Patcher {
	if runner == nil {
		runner = NewExecRunner()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Patcher{runner: runner, platform: platform, timeout: timeout, logger: log}
}

// Patch installs the add-on found in modDir into gameFolder. Only a zero
// installer exit marks the add-on patched.
func (p *Patcher) Patch(ctx context.Context, a *registry.AddOn, modDir, gameFolder string) PatchResult {
	profile, profileErr := ProfileFor(a.Kind, p.platform)
	if profileErr == nil && !profile.Unsupported && !profile.HasProcedure() {
		return PatchResult{State: NotApplicable}
	}
	if a.Patched {
		return PatchResult{State: AlreadyPatched}
	}

	// Preparing
	if profileErr != nil {
		return p.fail(a, profileErr)
	}
	if profile.Unsupported {
		return p.fail(a, fmt.Errorf("%w: %s on %s", ErrUnsupportedPlatform, a.Kind, p.platform))
	}
	if gameFolder == "" {
		return p.fail(a, registry.ErrGameFolderNotFound)
	}
	binDir := registry.BinariesDir(gameFolder)

	installer := filepath.Join(modDir, profile.Installer)
	if _, err := os.Stat(installer); err != nil {
		return p.fail(a, fmt.Errorf("%w: %v", ErrInstallerSpawn, err))
	}

	// CopyingFiles
	res := PatchResult{State: CopyingFiles}
	for _, name := range profile.CopyFiles {
		src := filepath.Join(modDir, name)
		dst := filepath.Join(binDir, name)
		if err := copyFile(src, dst); err != nil {
			p.logger.Warn("Failed to copy file into game folder", "addon", a.Key(), "file", name, "error", err)
			res.CopyErrors = append(res.CopyErrors, fmt.Errorf("copy %s: %w", name, err))
			continue
		}
		p.logger.Debug("Copied file into game folder", "addon", a.Key(), "file", name, "to", binDir)
	}

	// Executing
	res.State = Executing
	if p.platform == Unix {
		if err := os.Chmod(installer, 0755); err != nil {
			p.logger.Warn("Failed to make installer executable", "addon", a.Key(), "error", err)
		}
	}

	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.logger.Info("Running installer", "addon", a.Key(), "installer", profile.Installer)
	code, err := p.runner.Run(runCtx, Command{
		Path:  installer,
		Dir:   modDir,
		Stdin: profile.StdinScript(binDir),
	})
	if err != nil {
		r := p.fail(a, err)
		r.CopyErrors = res.CopyErrors
		return r
	}

	// Classifying
	res.State = Classifying
	res.ExitCode = code
	ok, remediation := ClassifyExitCode(code)
	if !ok {
		res.State = Failed
		res.Remediation = remediation
		res.Err = fmt.Errorf("%w: exit code %d", ErrInstallerFailed, NormalizeExitCode(code))
		p.logger.Error("Installer failed", "addon", a.Key(), "code", NormalizeExitCode(code))
		return res
	}

	a.Patched = true
	res.State = Success
	p.logger.Info("Add-on patched", "addon", a.Key())
	return res
}

func (p *Patcher) fail(a *registry.AddOn, err error) PatchResult {
	p.logger.Error("Patch failed", "addon", a.Key(), "error", err)
	return PatchResult{State: Failed, Err: err}
}

// NormalizeExitCode folds exit codes reported as unsigned 32-bit values back
// into their signed form.
func NormalizeExitCode(code int) int {
	return int(int32(uint32(code)))
}

// ClassifyExitCode reports whether the installer succeeded and, if not, what
// the user should do about it.
func ClassifyExitCode(code int) (bool, string) {
	code = NormalizeExitCode(code)
	switch code {
	case 0:
		return true, ""
	case ExitCodeMissingX86Runtime:
		return false, fmt.Sprintf("Exit code '%d'. Some 32-bit DLLs might be missing. Install the latest Microsoft Visual C++ Redistributable: %s", code, vcRedistURL)
	case ExitCodeMissingX64Runtime:
		return false, fmt.Sprintf("Exit code '%d'. Some 64-bit DLLs might be missing. Install the latest Microsoft Visual C++ Redistributable: %s", code, vcRedistURL)
	default:
		return false, fmt.Sprintf("Exit code '%d'. Ensure that the mod's executables can be run manually. 32-bit and/or 64-bit DLLs might be missing: %s", code, vcRedistURL)
	}
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		_ = destFile.Close()
		return err
	}
	return destFile.Close()
}
