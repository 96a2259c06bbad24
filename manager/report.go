package manager

import (
	"github.com/xrdtools/xrdmods/installer"
	"github.com/xrdtools/xrdmods/lib"
	"github.com/xrdtools/xrdmods/registry"
)

// Prompter asks the user to confirm a batch of changes.
type Prompter interface {
	Confirm(title, description string) (bool, error)
}

// Reporter receives per add-on progress as it happens.
type Reporter interface {
	Checked(res CheckResult)
	Updated(a *registry.AddOn, out installer.UpdateOutcome)
	Patched(a *registry.AddOn, res installer.PatchResult)
	Saved(path string, err error)
}

// CheckResult is the remote state of one add-on.
type CheckResult struct {
	AddOn   *registry.AddOn
	Release *lib.Release
	Changed bool
	Err     error
}

// Summary collects everything one UpdateAll run did.
type Summary struct {
	Checks   []CheckResult
	Declined bool
	Updates  map[string]installer.UpdateOutcome
	Patches  map[string]installer.PatchResult
	SaveErr  error
}

func newSummary() *Summary {
	return &Summary{
		Updates: make(map[string]installer.UpdateOutcome),
		Patches: make(map[string]installer.PatchResult),
	}
}

// Changed returns the checks that found a different release.
func (s *Summary) Changed() []CheckResult {
	var out []CheckResult
	for _, c := range s.Checks {
		if c.Err == nil && c.Changed {
			out = append(out, c)
		}
	}
	return out
}

// Failures counts add-ons that failed any step.
func (s *Summary) Failures() int {
	n := 0
	for _, c := range s.Checks {
		if c.Err != nil {
			n++
		}
	}
	for _, u := range s.Updates {
		if u.Status == installer.UpdateFailed {
			n++
		}
	}
	for _, p := range s.Patches {
		if p.State == installer.Failed {
			n++
		}
	}
	return n
}

type nopReporter struct{}

func (nopReporter) Checked(CheckResult) {
}

func (nopReporter) Updated(*registry.AddOn, installer.UpdateOutcome) {
}

func (nopReporter) Patched(*registry.AddOn, installer.PatchResult) {
}

func (nopReporter) Saved(string, error) {
}

type alwaysYes struct{}

func (alwaysYes) Confirm(string, string) (bool, error) { return true, nil }
