package lib

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const latestReleaseJSON = `{
  "id": 4242,
  "tag_name": "6.27",
  "html_url": "https://github.com/kkots/ggxrd_hitbox_overlay_2211/releases/tag/6.27",
  "body": "Fixed things\r\nAdded things",
  "published_at": "2024-05-01T12:00:00Z",
  "assets": [
    {"id": 1, "name": "ggxrd_hitbox_overlay.zip", "content_type": "application/zip", "size": 1024,
     "browser_download_url": "https://example.invalid/ggxrd_hitbox_overlay.zip"},
    {"id": 2, "name": "source.tar.gz", "content_type": "application/gzip", "size": 10,
     "browser_download_url": "https://example.invalid/source.tar.gz"}
  ]
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *GitHubProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewGitHubProvider(Options{APIURL: srv.URL, Token: "", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return p
}

func TestResolveSendsHeadersAndDecodesRelease(t *testing.T) {
	var gotPath, gotAccept, gotVersion, gotUA string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotVersion = r.Header.Get("X-GitHub-Api-Version")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(latestReleaseJSON))
	})

	rel, err := p.Resolve(context.Background(), "kkots", "ggxrd_hitbox_overlay_2211")
	require.NoError(t, err)

	assert.Equal(t, "/repos/kkots/ggxrd_hitbox_overlay_2211/releases/latest", gotPath)
	assert.Equal(t, "application/vnd.github+json", gotAccept)
	assert.Equal(t, "2022-11-28", gotVersion)
	assert.Equal(t, DefaultUserAgent, gotUA)

	assert.Equal(t, int64(4242), rel.ID)
	assert.Equal(t, "6.27", rel.TagName)
	assert.Equal(t, "https://github.com/kkots/ggxrd_hitbox_overlay_2211/releases/tag/6.27", rel.URL)
	assert.Equal(t, "2024-05-01T12:00:00Z", rel.PublishedAtString())
	assert.Equal(t, "Fixed things\nAdded things", rel.Notes())
	require.Len(t, rel.Assets, 2)
	assert.Equal(t, "ggxrd_hitbox_overlay.zip", rel.Assets[0].Name)
	assert.Equal(t, 1024, rel.Assets[0].Size)
	assert.Equal(t, "https://example.invalid/ggxrd_hitbox_overlay.zip", rel.Assets[0].DownloadURL)
}

func TestResolveNonSuccessStatus(t *testing.T) {
	testCases := []struct {
		name   string
		status int
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "forbidden", status: http.StatusForbidden},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			})

			rel, err := p.Resolve(context.Background(), "Iquis", "rev2-wakeup-tool")
			assert.Nil(t, rel)

			var re *ResolveError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tc.status, re.StatusCode)
			assert.Equal(t, "Iquis", re.Owner)
			assert.Equal(t, "rev2-wakeup-tool", re.Repo)
			assert.Equal(t, tc.status == http.StatusNotFound, IsNotFound(err))
		})
	}
}

func TestResolveNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewGitHubProvider(Options{APIURL: url, ConnectTimeout: time.Second})
	require.NoError(t, err)

	_, err = p.Resolve(context.Background(), "kkots", "GGXrdMirrorColorSelect")
	var re *ResolveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 0, re.StatusCode)
	assert.Error(t, re.Err)
}

func TestResolveCustomUserAgentAndToken(t *testing.T) {
	var gotUA, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(latestReleaseJSON))
	}))
	defer srv.Close()

	p, err := NewGitHubProvider(Options{APIURL: srv.URL + "/", UserAgent: "custom-agent", Token: "secret"})
	require.NoError(t, err)

	_, err = p.Resolve(context.Background(), "kkots", "GGXrdBackgroundGamepad")
	require.NoError(t, err)
	assert.Equal(t, "custom-agent", gotUA)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestNewGitHubProviderRejectsBadURL(t *testing.T) {
	_, err := NewGitHubProvider(Options{APIURL: "://bad"})
	assert.Error(t, err)
}
