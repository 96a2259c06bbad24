package installer

import (
	"context"
	"fmt"
	"os"

	"github.com/xrdtools/xrdmods/lib"
	"github.com/xrdtools/xrdmods/logger"
	"github.com/xrdtools/xrdmods/registry"
)

type UpdateStatus int

const (
	UpToDate UpdateStatus = iota
	Updated
	NoMatchingAssets
	UpdateFailed
)

func (s UpdateStatus) String() string {
	switch s {
	case UpToDate:
		return "up to date"
	case Updated:
		return "updated"
	case NoMatchingAssets:
		return "no matching assets"
	default:
		return "failed"
	}
}

// UpdateOutcome is the result of one UpdateIfNeeded call.
type UpdateOutcome struct {
	Status     UpdateStatus
	PrevTag    string
	NewTag     string
	Downloaded []string
	Extracted  []string
	Err        error
}

// Updater decides whether an add-on needs new files and fetches them.
type Updater struct {
	fetcher  *Fetcher
	platform Platform
	logger   *logger.Logger
}

func NewUpdater(fetcher *Fetcher, platform Platform, log *logger.Logger) *Updater {
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Updater{fetcher: fetcher, platform: platform, logger: log}
}

// UpdateIfNeeded compares the add-on's recorded tag with rel and downloads
// the whitelisted assets into modDir when they differ. On failure the add-on
// is left untouched so the next run retries.
func (u *Updater) UpdateIfNeeded(ctx context.Context, a *registry.AddOn, rel *lib.Release, modDir string) UpdateOutcome {
	out := UpdateOutcome{PrevTag: a.TagName, NewTag: rel.TagName}

	if a.TagName == rel.TagName {
		RecordRelease(a, rel)
		out.Status = UpToDate
		return out
	}

	profile, err := ProfileFor(a.Kind, u.platform)
	if err != nil {
		return failed(out, err)
	}

	matches := SelectAssets(profile.AssetNames(rel.TagName), rel.Assets)
	if len(matches) == 0 {
		u.logger.Info("No matching assets in release", "addon", a.Key(), "tag", rel.TagName)
		RecordRelease(a, rel)
		out.Status = NoMatchingAssets
		return out
	}

	if err := os.MkdirAll(modDir, 0755); err != nil {
		return failed(out, fmt.Errorf("failed to create add-on folder: %w", err))
	}

	for _, asset := range matches {
		u.logger.Debug("Downloading asset", "addon", a.Key(), "asset", asset.Name, "size", asset.Size)
		path, err := u.fetcher.Download(ctx, asset.DownloadURL, modDir, asset.Name)
		if err != nil {
			return failed(out, err)
		}
		out.Downloaded = append(out.Downloaded, path)

		if IsArchive(path) {
			files, err := Expand(path, modDir)
			out.Extracted = append(out.Extracted, files...)
			if err != nil {
				return failed(out, err)
			}
		}
	}

	RecordRelease(a, rel)
	a.Patched = false
	out.Status = Updated
	u.logger.Info("Add-on updated", "addon", a.Key(), "from", out.PrevTag, "to", rel.TagName, "files", len(out.Downloaded))
	return out
}

func failed(out UpdateOutcome, err error) UpdateOutcome {
	out.Status = UpdateFailed
	out.Err = err
	return out
}

// SelectAssets returns the release assets whose names are in names, in
// release order.
func SelectAssets(names []string, assets []lib.Asset) []lib.Asset {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []lib.Asset
	for _, a := range assets {
		if wanted[a.Name] {
			out = append(out, a)
		}
	}
	return out
}

// RecordRelease copies the release identity onto the add-on.
func RecordRelease(a *registry.AddOn, rel *lib.Release) {
	a.ReleaseID = rel.ID
	a.TagName = rel.TagName
	a.PublishedAt = rel.PublishedAtString()
	a.ReleaseURL = rel.URL
}
