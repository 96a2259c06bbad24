package lib

import (
	"strings"
	"time"
)

// Release is the latest published release of an add-on's upstream repository.
type Release struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"html_url"`
	Body        string    `json:"body"`
	Assets      []Asset   `json:"assets"`
}

type Asset struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	DownloadURL string `json:"browser_download_url"`
}

// PublishedAtString renders the publish time the way it is stored in db.json.
func (r *Release) PublishedAtString() string {
	if r.PublishedAt.IsZero() {
		return ""
	}
	return r.PublishedAt.UTC().Format(time.RFC3339)
}

// Notes returns the release body with carriage returns removed.
func (r *Release) Notes() string {
	return strings.ReplaceAll(r.Body, "\r", "")
}
