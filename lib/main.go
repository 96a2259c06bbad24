package lib

import (
	"net/http"
	"time"
)

// Options configures the release resolver. Zero values fall back to the
// package defaults.
type Options struct {
	APIURL         string
	UserAgent      string
	Token          string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

func (o Options) withDefaults() Options {
	if o.APIURL == "" {
		o.APIURL = DefaultAPIURL
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	return o
}

// NewResolver returns the GitHub resolver, picking up GITHUB_TOKEN when no
// token is given explicitly.
func NewResolver(opts Options) (ReleaseResolver, error) {
	if opts.Token == "" {
		opts.Token = tokenFromEnv()
	}
	return NewGitHubProvider(opts)
}
