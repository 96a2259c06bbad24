package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xrdtools/xrdmods/installer"
	"github.com/xrdtools/xrdmods/lib"
	"github.com/xrdtools/xrdmods/logger"
	"github.com/xrdtools/xrdmods/registry"
)

var ErrUnknownAddOn = errors.New("unknown add-on")

const defaultSaveAttempts = 3

// Manager runs the check, update and patch flows over a registry.
type Manager struct {
	registry *registry.Registry
	resolver lib.ReleaseResolver
	updater  *installer.Updater
	patcher  *installer.Patcher
	prompter Prompter
	reporter Reporter
	logger   *logger.Logger

	locateGame   func() (string, error)
	saveAttempts int
	saveBackoff  time.Duration

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
	saveMu  sync.Mutex
}

type Option func(*Manager)

func WithPrompter(p Prompter) Option {
	return func(m *Manager) {
		m.prompter = p
	}
}

func WithReporter(r Reporter) Option {
	return func(m *Manager) {
		m.reporter = r
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithGameLocator replaces Steam discovery of the game folder.
func WithGameLocator(locate func() (string, error)) Option {
	return func(m *Manager) {
		m.locateGame = locate
	}
}

func WithSaveRetry(attempts int, backoff time.Duration) Option {
	return func(m *Manager) {
		m.saveAttempts = attempts
		m.saveBackoff = backoff
	}
}

func New(reg *registry.Registry, resolver lib.ReleaseResolver, updater *installer.Updater, patcher *installer.Patcher, opts ...Option) *Manager {
	m := &Manager{
		registry:     reg,
		resolver:     resolver,
		updater:      updater,
		patcher:      patcher,
		prompter:     alwaysYes{},
		reporter:     nopReporter{},
		logger:       logger.Nop(),
		locateGame:   registry.LocateGameFolder,
		saveAttempts: defaultSaveAttempts,
		saveBackoff:  200 * time.Millisecond,
		locks:        make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// UpdateOptions controls UpdateAll.
type UpdateOptions struct {
	// IncludeDisabled also checks and updates disabled add-ons.
	IncludeDisabled bool
	// AssumeYes skips the confirmation prompt.
	AssumeYes bool
}

// CheckAll resolves the latest release of every selected add-on. A failure
// for one add-on is recorded in its result and does not stop the others.
func (m *Manager) CheckAll(ctx context.Context, includeDisabled bool) []CheckResult {
	addOns := m.registry.Enabled()
	if includeDisabled {
		addOns = m.registry.All()
	}

	results := make([]CheckResult, 0, len(addOns))
	for _, a := range addOns {
		if ctx.Err() != nil {
			break
		}
		res := m.check(ctx, a)
		m.reporter.Checked(res)
		results = append(results, res)
	}
	return results
}

func (m *Manager) check(ctx context.Context, a *registry.AddOn) CheckResult {
	m.logger.Debug("Resolving latest release", "addon", a.Key())
	rel, err := m.resolver.Resolve(ctx, a.Owner, a.Name)
	if err != nil {
		m.logger.Warn("Failed to resolve latest release", "addon", a.Key(), "error", err)
		return CheckResult{AddOn: a, Err: err}
	}
	return CheckResult{
		AddOn:   a,
		Release: rel,
		Changed: a.TagName != rel.TagName || a.PublishedAt != rel.PublishedAtString(),
	}
}

// UpdateAll checks every add-on, asks for confirmation when anything
// changed, downloads new releases and then patches every add-on waiting for
// it. Patching runs even when nothing was updated or the prompt failed; a
// prompt error is returned after the patches are saved.
func (m *Manager) UpdateAll(ctx context.Context, opts UpdateOptions) (*Summary, error) {
	summary := newSummary()
	summary.Checks = m.CheckAll(ctx, opts.IncludeDisabled)
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	var promptErr error
	changed := summary.Changed()
	if len(changed) > 0 {
		proceed := opts.AssumeYes
		if !proceed {
			proceed, promptErr = m.prompter.Confirm(
				fmt.Sprintf("Update %d add-on(s)?", len(changed)),
				describeChanges(changed),
			)
			if promptErr != nil {
				m.logger.Error("Confirmation failed, skipping updates", "error", promptErr)
				proceed = false
			}
		}

		if proceed {
			for _, c := range summary.Checks {
				if c.Err != nil {
					continue
				}
				summary.Updates[c.AddOn.Key()] = m.update(ctx, c.AddOn, c.Release)
			}
			summary.SaveErr = m.Save()
		} else {
			summary.Declined = true
			if promptErr == nil {
				m.logger.Info("Update cancelled by user")
			}
		}
	}

	patches, err := m.PatchPending(ctx)
	for k, v := range patches {
		summary.Patches[k] = v
	}
	// Installers that already succeeded stay recorded even if the batch stops.
	if len(patches) > 0 {
		if saveErr := m.Save(); saveErr != nil {
			summary.SaveErr = saveErr
		}
	}
	if err != nil && !errors.Is(err, registry.ErrGameFolderNotFound) {
		return summary, err
	}
	return summary, promptErr
}

func (m *Manager) update(ctx context.Context, a *registry.AddOn, rel *lib.Release) installer.UpdateOutcome {
	unlock := m.lock(a.Key())
	defer unlock()

	out := m.updater.UpdateIfNeeded(ctx, a, rel, m.registry.ModDir(a))
	m.reporter.Updated(a, out)
	return out
}

// PatchPending patches every add-on flagged for automatic patching that is
// not patched yet. The game folder is only looked up when there is work.
func (m *Manager) PatchPending(ctx context.Context) (map[string]installer.PatchResult, error) {
	results := make(map[string]installer.PatchResult)
	pending := m.registry.PendingPatch()
	if len(pending) == 0 {
		return results, nil
	}

	game, err := m.registry.ResolveGameFolder(m.locateGame)
	if err != nil {
		err = fmt.Errorf("%w: %v", registry.ErrGameFolderNotFound, err)
		for _, a := range pending {
			res := installer.PatchResult{State: installer.Failed, Err: err}
			m.reporter.Patched(a, res)
			results[a.Key()] = res
		}
		return results, err
	}

	for _, a := range pending {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		results[a.Key()] = m.patch(ctx, a, game)
	}
	return results, nil
}

func (m *Manager) patch(ctx context.Context, a *registry.AddOn, game string) installer.PatchResult {
	unlock := m.lock(a.Key())
	defer unlock()

	res := m.patcher.Patch(ctx, a, m.registry.ModDir(a), game)
	m.reporter.Patched(a, res)
	return res
}

// UpdateOne checks and updates a single add-on, then patches it when it is
// flagged for automatic patching.
func (m *Manager) UpdateOne(ctx context.Context, key string) (installer.UpdateOutcome, error) {
	a, err := m.get(key)
	if err != nil {
		return installer.UpdateOutcome{}, err
	}

	res := m.check(ctx, a)
	m.reporter.Checked(res)
	if res.Err != nil {
		return installer.UpdateOutcome{Status: installer.UpdateFailed, Err: res.Err}, res.Err
	}

	out := m.update(ctx, a, res.Release)
	if a.NeedsPatch() {
		if game, err := m.registry.ResolveGameFolder(m.locateGame); err == nil {
			m.patch(ctx, a, game)
		} else {
			m.logger.Warn("Skipping patch, game folder unknown", "addon", key, "error", err)
		}
	}
	return out, m.Save()
}

// PatchOne patches a single add-on. With force the patched flag is cleared
// first so the installer runs again.
func (m *Manager) PatchOne(ctx context.Context, key string, force bool) (installer.PatchResult, error) {
	a, err := m.get(key)
	if err != nil {
		return installer.PatchResult{}, err
	}

	game, err := m.registry.ResolveGameFolder(m.locateGame)
	if err != nil {
		return installer.PatchResult{State: installer.Failed, Err: err}, fmt.Errorf("%w: %v", registry.ErrGameFolderNotFound, err)
	}

	if force {
		a.Patched = false
	}
	res := m.patch(ctx, a, game)
	return res, m.Save()
}

// AddAddOn registers a new add-on from an "owner/name" key and saves.
func (m *Manager) AddAddOn(key string, kind registry.Kind) (*registry.AddOn, error) {
	owner, name, err := registry.SplitKey(key)
	if err != nil {
		return nil, err
	}
	a := registry.NewAddOn(owner, name, kind)
	a.Enabled = true
	if err := m.registry.Add(a); err != nil {
		return nil, err
	}
	m.logger.Info("Add-on registered", "addon", a.Key(), "kind", kind)
	return a, m.Save()
}

// SetEnabled flips the enabled flag of the given add-ons.
func (m *Manager) SetEnabled(keys []string, enabled bool) error {
	for _, k := range keys {
		if _, err := m.get(k); err != nil {
			return err
		}
	}
	for _, k := range keys {
		m.registry.AddOns[k].Enabled = enabled
	}
	return m.Save()
}

// SetEnabledExactly enables the given add-ons and disables every other one.
func (m *Manager) SetEnabledExactly(keys []string) error {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, err := m.get(k); err != nil {
			return err
		}
		want[k] = true
	}
	for k, a := range m.registry.AddOns {
		a.Enabled = want[k]
	}
	return m.Save()
}

func (m *Manager) SetAutoPatch(key string, on bool) error {
	a, err := m.get(key)
	if err != nil {
		return err
	}
	a.AutoPatch = on
	return m.Save()
}

// Save persists the registry, retrying transient failures. The in-memory
// state is kept either way so a later save can still succeed.
func (m *Manager) Save() error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	attempts := m.saveAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(m.saveBackoff * time.Duration(i))
		}
		if err = m.registry.Save(); err == nil {
			break
		}
		m.logger.Warn("Failed to save registry", "attempt", i+1, "error", err)
	}
	m.reporter.Saved(m.registry.Path(), err)
	return err
}

func (m *Manager) get(key string) (*registry.AddOn, error) {
	a, ok := m.registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddOn, key)
	}
	return a, nil
}

func (m *Manager) lock(key string) func() {
	m.locksMu.Lock()
	mu, ok := m.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[key] = mu
	}
	m.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func describeChanges(changed []CheckResult) string {
	var b strings.Builder
	for _, c := range changed {
		from := c.AddOn.TagName
		if from == "" {
			from = "none"
		}
		fmt.Fprintf(&b, "%s: %s -> %s\n", c.AddOn.Key(), from, c.Release.TagName)
	}
	return strings.TrimRight(b.String(), "\n")
}
