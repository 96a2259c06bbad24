package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime/debug"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/xrdtools/xrdmods/lib"
)

const (
	selfOwner = "xrdtools"
	selfRepo  = "xrdmods"
)

// Version is set with -ldflags "-X main.Version=...".
var Version string

func getCurrentVersion() (string, string) {
	if Version != "" {
		return Version, ""
	}

	hash, err := getGitCommitHash()
	if err == nil && len(hash) >= 7 {
		return hash[:7], hash
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				return setting.Value[:7], setting.Value
			}
		}
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version, ""
		}
	}

	return "unknown", ""
}

func getGitCommitHash() (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err == nil {
		return strings.TrimSpace(string(output)), nil
	}

	repo, err := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}

	ref, err := repo.Head()
	if err != nil {
		return "", err
	}

	return ref.Hash().String(), nil
}

func printVersionInfo(ctx context.Context, w io.Writer, resolver lib.ReleaseResolver) error {
	version, commitHash := getCurrentVersion()
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("Current version: %s", version)))
	if commitHash != "" {
		fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("Commit hash: %s", commitHash)))
	}

	if resolver == nil {
		return nil
	}
	rel, err := resolver.Resolve(ctx, selfOwner, selfRepo)
	if err != nil {
		return fmt.Errorf("failed to fetch latest release information: %w", err)
	}
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("Latest version: %s (%s)", rel.TagName, rel.URL)))
	return nil
}
