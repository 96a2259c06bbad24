package registry

import (
	"fmt"
	"strings"
)

// AddOn is one tracked add-on and the release state last installed for it.
type AddOn struct {
	Owner string `json:"repo_owner"`
	Name  string `json:"repo_name"`
	Kind  Kind   `json:"app_type"`

	ReleaseID   int64  `json:"id"`
	TagName     string `json:"tag_name"`
	PublishedAt string `json:"published_at"`
	ReleaseURL  string `json:"url_source_version"`

	AutoPatch    bool `json:"automatically_patch"`
	Patched      bool `json:"patched"`
	Enabled      bool `json:"enabled"`
	TrackUpdates bool `json:"track_updates"`
	Tracked      bool `json:"tracked"`
}

// NewAddOn returns a disabled add-on with no recorded version.
func NewAddOn(owner, name string, kind Kind) *AddOn {
	return &AddOn{
		Owner: owner,
		Name:  name,
		Kind:  kind,
	}
}

// Key is the registry key, "owner/name".
func (a *AddOn) Key() string {
	return a.Owner + "/" + a.Name
}

func (a *AddOn) RepoURL() string {
	return fmt.Sprintf("https://github.com/%s/%s", a.Owner, a.Name)
}

// NeedsPatch reports whether the add-on should be patched automatically.
func (a *AddOn) NeedsPatch() bool {
	return a.AutoPatch && !a.Patched
}

// SplitKey parses "owner/name".
func SplitKey(key string) (owner, name string, err error) {
	parts := strings.Split(strings.TrimSpace(key), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid add-on key %q, expected owner/name", key)
	}
	return parts[0], parts[1], nil
}

// Defaults is the add-on set written on first run.
func Defaults() []*AddOn {
	return []*AddOn{
		NewAddOn("kkots", "ggxrd_hitbox_overlay_2211", HitboxOverlay),
		NewAddOn("Iquis", "rev2-wakeup-tool", WakeupTool),
		NewAddOn("kkots", "rev2-wakeup-tool", WakeupTool),
		NewAddOn("kkots", "GGXrdFasterLoadingTimes", FasterLoadingTimes),
		NewAddOn("kkots", "GGXrdMirrorColorSelect", MirrorColorSelect),
		NewAddOn("kkots", "GGXrdBackgroundGamepad", BackgroundGamepad),
	}
}
