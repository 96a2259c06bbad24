package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	// ModFolderEnv overrides the directory holding db.json and the add-on folders.
	ModFolderEnv = "XRD_MOD_FOLDER"
	DBFileName   = "db.json"
)

var ErrAddOnExists = errors.New("add-on already registered")

// Registry is the persisted set of add-ons plus the cached game folder.
type Registry struct {
	AddOns     map[string]*AddOn `json:"apps"`
	GameFolder string            `json:"xrd_game_folder,omitempty"`

	root  string
	fresh bool
}

// New returns a registry rooted at root holding the default add-ons.
func New(root string) *Registry {
	r := &Registry{
		AddOns: make(map[string]*AddOn),
		root:   root,
		fresh:  true,
	}
	for _, a := range Defaults() {
		r.AddOns[a.Key()] = a
	}
	return r
}

// Load reads <root>/db.json. A missing file yields the default set.
func Load(root string) (*Registry, error) {
	path := filepath.Join(root, DBFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(root), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	r := &Registry{root: root}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if r.AddOns == nil {
		r.AddOns = make(map[string]*AddOn)
	}
	// The map key is authoritative for identity.
	for key, a := range r.AddOns {
		if a == nil {
			delete(r.AddOns, key)
			continue
		}
		if owner, name, err := SplitKey(key); err == nil {
			a.Owner, a.Name = owner, name
		}
	}
	return r, nil
}

// Save writes the whole registry atomically.
func (r *Registry) Save() error {
	if err := os.MkdirAll(r.root, 0755); err != nil {
		return fmt.Errorf("failed to create mods folder: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(r.root, ".db-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary registry file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close registry: %w", err)
	}
	if err := os.Rename(tmpName, r.Path()); err != nil {
		return fmt.Errorf("failed to replace registry: %w", err)
	}

	r.fresh = false
	return nil
}

// Root is the mods folder.
func (r *Registry) Root() string {
	return r.root
}

func (r *Registry) Path() string {
	return filepath.Join(r.root, DBFileName)
}

// Fresh reports whether the registry was created from defaults and has not
// been saved yet.
func (r *Registry) Fresh() bool {
	return r.fresh
}

// Keys returns every add-on key in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.AddOns))
	for k := range r.AddOns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) Get(key string) (*AddOn, bool) {
	a, ok := r.AddOns[key]
	return a, ok
}

func (r *Registry) Add(a *AddOn) error {
	if _, exists := r.AddOns[a.Key()]; exists {
		return fmt.Errorf("%w: %s", ErrAddOnExists, a.Key())
	}
	r.AddOns[a.Key()] = a
	return nil
}

// Enabled returns the enabled add-ons ordered by key.
func (r *Registry) Enabled() []*AddOn {
	return r.filter(func(a *AddOn) bool { return a.Enabled })
}

// All returns every add-on ordered by key.
func (r *Registry) All() []*AddOn {
	return r.filter(func(*AddOn) bool { return true })
}

// PendingPatch returns add-ons flagged for automatic patching that are not
// patched yet.
func (r *Registry) PendingPatch() []*AddOn {
	return r.filter((*AddOn).NeedsPatch)
}

func (r *Registry) filter(keep func(*AddOn) bool) []*AddOn {
	var out []*AddOn
	for _, k := range r.Keys() {
		if a := r.AddOns[k]; keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// ModDir is where an add-on's release files are stored.
func (r *Registry) ModDir(a *AddOn) string {
	return filepath.Join(r.root, a.Owner, a.Name)
}

// ModsRoot returns XRD_MOD_FOLDER when set, otherwise the directory of the
// running executable.
func ModsRoot() (string, error) {
	if dir := os.Getenv(ModFolderEnv); dir != "" {
		return filepath.Abs(dir)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
