package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"reclink/internal/media"
)

// Resolver resolves a share page to its media.
type Resolver interface {
	Resolve(ctx context.Context, shareURL string) (*media.Resolved, error)
}

// Book is the consumer-side view of the history: it records uploads and
// serves previews from the resolution cached on each record.
type Book struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

// NewBook wraps store.
func NewBook(store Store, logger zerolog.Logger) *Book {
	return &Book{store: store, now: time.Now, log: logger}
}

// Store returns the underlying store.
func (b *Book) Store() Store { return b.store }

// Add records a freshly uploaded share link. Adding a URL that is already in
// the history leaves the existing record untouched.
func (b *Book) Add(ctx context.Context, url, filename string) (media.ShareLink, error) {
	link := media.ShareLink{
		URL:       url,
		Timestamp: b.now().UnixMilli(),
		Filename:  filename,
	}
	if err := b.store.Append(ctx, link); err != nil {
		return media.ShareLink{}, fmt.Errorf("adding %s to history: %w", url, err)
	}
	return link, nil
}

// Resolve returns the media for url. A resolution cached on the history
// record is returned as is; otherwise r is asked and, if url is in the
// history, the answer is written back to the record. URLs not in the history
// are resolved but not added.
func (b *Book) Resolve(ctx context.Context, url string, r Resolver) (*media.Resolved, error) {
	links, err := b.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	rec, known := Find(links, url)
	if known && rec.Resolved != nil {
		b.log.Debug().Str("url", rec.URL).Msg("preview served from history")
		res := *rec.Resolved
		return &res, nil
	}

	res, err := r.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}

	if known {
		if err := b.store.SetResolved(ctx, rec.URL, *res); err != nil {
			// The preview itself succeeded.
			b.log.Warn().Err(err).Str("url", rec.URL).Msg("caching resolution in history failed")
		}
	}
	return res, nil
}
