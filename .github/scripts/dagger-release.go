package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"dagger.io/dagger"
	"github.com/google/go-github/v39/github"
	"golang.org/x/oauth2"
)

const (
	releaseOwner = "xrdtools"
	releaseRepo  = "xrdmods"
)

type target struct {
	goos, goarch, name string
}

var targets = []target{
	{"windows", "amd64", "xrdmods.exe"},
	{"windows", "386", "xrdmods_32bit.exe"},
	{"linux", "amd64", "xrdmods"},
}

func main() {
	if err := publishRelease(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func publishRelease(ctx context.Context) error {
	tag := os.Getenv("RELEASE_TAG")
	if tag == "" {
		return fmt.Errorf("RELEASE_TAG environment variable is not set")
	}

	client, err := dagger.Connect(ctx, dagger.WithLogOutput(os.Stdout))
	if err != nil {
		return err
	}
	defer client.Close()

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %v", err)
	}
	projectRoot := filepath.Dir(filepath.Dir(wd))
	src := client.Host().Directory(projectRoot, dagger.HostDirectoryOpts{
		Exclude: []string{"_examples", "dist"},
	})

	base := client.Container().
		From("golang:1.23.0").
		WithDirectory("/src", src).
		WithWorkdir("/src")

	if _, err := base.WithExec([]string{"go", "test", "./..."}).Sync(ctx); err != nil {
		return fmt.Errorf("tests failed: %v", err)
	}

	distDir := filepath.Join(projectRoot, "dist")
	var artifacts []string
	for _, tg := range targets {
		out := "/out/" + tg.name
		build := base.
			WithEnvVariable("CGO_ENABLED", "0").
			WithEnvVariable("GOOS", tg.goos).
			WithEnvVariable("GOARCH", tg.goarch).
			WithExec([]string{"go", "build", "-ldflags", "-X main.Version=" + tag, "-o", out, "."})

		path := filepath.Join(distDir, tg.name)
		if _, err := build.File(out).Export(ctx, path); err != nil {
			return fmt.Errorf("failed to build %s/%s: %v", tg.goos, tg.goarch, err)
		}
		artifacts = append(artifacts, path)
	}

	fmt.Println("Tests passed. Creating GitHub release...")
	if err := createGitHubRelease(ctx, tag, artifacts); err != nil {
		return fmt.Errorf("failed to create GitHub release: %v", err)
	}
	return nil
}

func createGitHubRelease(ctx context.Context, tag string, artifacts []string) error {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return fmt.Errorf("GITHUB_TOKEN environment variable is not set")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	release, resp, err := client.Repositories.CreateRelease(ctx, releaseOwner, releaseRepo, &github.RepositoryRelease{
		TagName:    github.String(tag),
		Name:       github.String("xrdmods " + tag),
		Draft:      github.Bool(false),
		Prerelease: github.Bool(false),
	})
	if err != nil {
		if resp != nil {
			fmt.Printf("GitHub API response status: %s\n", resp.Status)
		}
		return fmt.Errorf("GitHub API error: %v", err)
	}

	for _, path := range artifacts {
		if err := uploadAsset(ctx, client, release.GetID(), path); err != nil {
			return err
		}
	}

	fmt.Printf("Release created: %s\n", release.GetHTMLURL())
	return nil
}

func uploadAsset(ctx context.Context, client *github.Client, releaseID int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, _, err = client.Repositories.UploadReleaseAsset(ctx, releaseOwner, releaseRepo, releaseID,
		&github.UploadOptions{Name: filepath.Base(path)}, f)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %v", filepath.Base(path), err)
	}
	return nil
}
