package lib

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v39/github"
	"golang.org/x/oauth2"
)

type GitHubProvider struct {
	client *github.Client
}

// NewGitHubProvider builds a resolver on top of go-github. A GITHUB_TOKEN in
// the environment is used for authentication when present.
func NewGitHubProvider(opts Options) (*GitHubProvider, error) {
	opts = opts.withDefaults()

	base := opts.HTTPClient
	if base == nil {
		base = NewHTTPClient(opts.ConnectTimeout, opts.RequestTimeout)
	}

	httpClient := &http.Client{
		Transport: &apiTransport{base: transportOf(base)},
		Timeout:   base.Timeout,
	}

	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		tc := oauth2.NewClient(ctx, ts)
		tc.Timeout = httpClient.Timeout
		httpClient = tc
	}

	client := github.NewClient(httpClient)
	client.UserAgent = opts.UserAgent

	apiURL := opts.APIURL
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	baseURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", opts.APIURL, err)
	}
	client.BaseURL = baseURL

	return &GitHubProvider{client: client}, nil
}

func (g *GitHubProvider) Resolve(ctx context.Context, owner, repo string) (*Release, error) {
	release, resp, err := g.client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		rerr := &ResolveError{Owner: owner, Repo: repo, Err: err}
		if resp != nil && resp.Response != nil {
			rerr.StatusCode = resp.StatusCode
		}
		return nil, rerr
	}

	return fromGitHub(release), nil
}

func fromGitHub(release *github.RepositoryRelease) *Release {
	r := &Release{
		ID:      release.GetID(),
		TagName: release.GetTagName(),
		URL:     release.GetHTMLURL(),
		Body:    release.GetBody(),
	}
	if release.PublishedAt != nil {
		r.PublishedAt = release.PublishedAt.Time
	}
	for _, a := range release.Assets {
		r.Assets = append(r.Assets, Asset{
			ID:          a.GetID(),
			Name:        a.GetName(),
			ContentType: a.GetContentType(),
			Size:        a.GetSize(),
			DownloadURL: a.GetBrowserDownloadURL(),
		})
	}
	return r
}

func transportOf(c *http.Client) http.RoundTripper {
	if c.Transport != nil {
		return c.Transport
	}
	return http.DefaultTransport
}

func tokenFromEnv() string {
	return strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
}
