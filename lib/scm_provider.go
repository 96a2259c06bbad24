package lib

import "context"

// ReleaseResolver looks up the latest release of a repository.
type ReleaseResolver interface {
	Resolve(ctx context.Context, owner, repo string) (*Release, error)
}
