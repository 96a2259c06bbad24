package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/xrdtools/xrdmods/lib"
)

var (
	ErrDownloadFailed         = errors.New("download failed")
	ErrDestinationIsDirectory = errors.New("a directory already exists at the download destination")
	ErrPermissionDenied       = errors.New("destination is not writable")
)

// Fetcher downloads release assets into an add-on folder.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = client
	}
}

func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		// No overall timeout; assets can be large.
		httpClient: lib.NewHTTPClient(lib.DefaultConnectTimeout, 0),
		userAgent:  lib.DefaultUserAgent,
	}
	f.httpClient.Timeout = 0
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Download fetches rawURL into destDir as name and returns the written path.
// An empty name falls back to the last path segment of the URL. An existing
// file with the same name is replaced; an existing directory is an error.
func (f *Fetcher) Download(ctx context.Context, rawURL, destDir, name string) (string, error) {
	if name == "" {
		var err error
		if name, err = fileNameFromURL(rawURL); err != nil {
			return "", err
		}
	} else if err := checkFileName(name); err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, name)

	if info, err := os.Stat(dest); err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s", ErrDestinationIsDirectory, dest)
		}
		if err := os.Remove(dest); err != nil {
			return "", fmt.Errorf("failed to remove existing file %s: %w", dest, err)
		}
	}

	if err := checkWritePermission(destDir); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: status %d", ErrDownloadFailed, name, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(destDir, "."+name+".part-*")
	if err != nil {
		return "", fmt.Errorf("create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w: %s: %v", ErrDownloadFailed, name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("move download into place: %w", err)
	}

	return dest, nil
}

func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid download URL %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("download URL %q has no file name", rawURL)
	}
	return name, nil
}

// checkFileName rejects names that would land outside the destination folder.
func checkFileName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.VolumeName(name) != "" {
		return fmt.Errorf("%w: %q", ErrUnsafeArchivePath, name)
	}
	return nil
}

func checkWritePermission(dir string) error {
	testFile := filepath.Join(dir, ".xrdmods-write-test")

	f, err := os.Create(testFile)
	if err != nil {
		return err
	}
	_ = f.Close()
	_ = os.Remove(testFile)
	return nil
}
