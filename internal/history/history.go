// Package history keeps the local list of uploaded share links, newest first,
// capped at MaxEntries and unique by URL. Each link may carry the media it
// resolved to so a later preview does not go back to the network.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"reclink/internal/media"
)

// MaxEntries is the most links the history ever holds.
const MaxEntries = 50

// Store persists the share link history. Load returns newest first.
// Implementations enforce the cap and URL uniqueness on every write.
type Store interface {
	Load(ctx context.Context) ([]media.ShareLink, error)
	Save(ctx context.Context, links []media.ShareLink) error
	// Append adds link as the newest entry. It is a no-op if the URL is
	// already present.
	Append(ctx context.Context, link media.ShareLink) error
	Remove(ctx context.Context, url string) error
	SetResolved(ctx context.Context, url string, res media.Resolved) error
	Close() error
}

// normalize trims URLs, drops empty and repeated URLs (the first occurrence
// wins) and truncates to MaxEntries. links must be newest first.
func normalize(links []media.ShareLink) []media.ShareLink {
	seen := make(map[string]bool, len(links))
	out := make([]media.ShareLink, 0, min(len(links), MaxEntries))
	for _, l := range links {
		l.URL = strings.TrimSpace(l.URL)
		if l.URL == "" || seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		out = append(out, l)
		if len(out) == MaxEntries {
			break
		}
	}
	return out
}

// Find returns the link with the given URL, if present.
func Find(links []media.ShareLink, url string) (media.ShareLink, bool) {
	url = strings.TrimSpace(url)
	for _, l := range links {
		if l.URL == url {
			return l, true
		}
	}
	return media.ShareLink{}, false
}

// FormatForDisplay renders one line per link: filename, URL, and how long ago
// it was uploaded relative to now.
func FormatForDisplay(links []media.ShareLink, now time.Time) []string {
	items := make([]string, 0, len(links))
	for _, l := range links {
		name := l.Filename
		if name == "" {
			name = "(unnamed)"
		}
		display := fmt.Sprintf("%s  %s  %s", name, l.URL, humanize.RelTime(time.UnixMilli(l.Timestamp), now, "ago", "from now"))
		if l.Resolved != nil {
			display += " [" + l.Resolved.MediaType.String() + "]"
		}
		items = append(items, display)
	}
	return items
}
