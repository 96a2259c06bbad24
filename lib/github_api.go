// lib/github_api.go

package lib

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	DefaultAPIURL         = "https://api.github.com/"
	DefaultUserAgent      = "Script-Check-Xrd-Tools"
	DefaultConnectTimeout = 4 * time.Second
	DefaultRequestTimeout = 30 * time.Second

	acceptHeader     = "application/vnd.github+json"
	apiVersionHeader = "2022-11-28"
)

// ResolveError is returned when the latest release of a repository could not
// be obtained. StatusCode is 0 when no response was received.
type ResolveError struct {
	Owner      string
	Repo       string
	StatusCode int
	Err        error
}

func (e *ResolveError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to resolve latest release of %s/%s: status %d", e.Owner, e.Repo, e.StatusCode)
	}
	return fmt.Sprintf("failed to resolve latest release of %s/%s: %v", e.Owner, e.Repo, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a ResolveError for a missing repository
// or a repository without any published release.
func IsNotFound(err error) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}

// apiTransport pins the GitHub REST headers on every outgoing request.
type apiTransport struct {
	base http.RoundTripper
}

func (t *apiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	return t.base.RoundTrip(req)
}

// NewHTTPClient returns a client whose dial phase is bounded by
// connectTimeout and whose whole request is bounded by requestTimeout.
func NewHTTPClient(connectTimeout, requestTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &http.Client{
		Transport: transport,
		Timeout:   requestTimeout,
	}
}
