package installer

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrUnsafeArchivePath = errors.New("archive entry escapes destination")
)

// IsArchive reports whether a downloaded asset should be expanded.
func IsArchive(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

// Expand unpacks the zip at zipPath into destDir, preserving the relative
// layout and file modes of its entries. Existing files are overwritten.
func Expand(zipPath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, filepath.Base(zipPath), err)
	}
	defer func() { _ = zr.Close() }()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var written []string
	for _, entry := range zr.File {
		target, err := entryPath(root, entry.Name)
		if err != nil {
			return written, err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return written, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
			continue
		}

		if err := extractEntry(entry, target); err != nil {
			return written, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, entry.Name, err)
		}
		written = append(written, target)
	}

	return written, nil
}

func entryPath(root, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}
	target := filepath.Join(root, clean)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}
	return target, nil
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}

	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s", ErrDestinationIsDirectory, target)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(target, mode)
}
