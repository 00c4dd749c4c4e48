package resolve

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"reclink/internal/httputil"
	"reclink/internal/media"
)

const maxPageBody = 5 << 20

// Scraper resolves a share page by reading the media player out of its HTML.
type Scraper struct {
	client       *http.Client
	pageTimeout  time.Duration
	sniffTimeout time.Duration
	log          zerolog.Logger
}

// NewScraper creates a Scraper. pageTimeout bounds the page fetch and
// sniffTimeout bounds the ranged media fetch.
func NewScraper(client *http.Client, pageTimeout, sniffTimeout time.Duration, logger zerolog.Logger) *Scraper {
	return &Scraper{
		client:       client,
		pageTimeout:  pageTimeout,
		sniffTimeout: sniffTimeout,
		log:          logger,
	}
}

func (s *Scraper) Name() string { return "scrape" }

// Resolve fetches the share page and extracts the player's media URL.
func (s *Scraper) Resolve(ctx context.Context, shareURL string) (*media.Resolved, error) {
	doc, pageURL, err := s.fetchDocument(ctx, shareURL)
	if err != nil {
		return nil, err
	}

	src, ok := findMediaSource(doc)
	if !ok {
		if name, ok := contentName(doc); ok {
			s.log.Warn().Str("url", shareURL).Str("name", name).Msg("share page has content but no player")
			return nil, &Error{
				Kind:   KindNotFound,
				Reason: ReasonLinkUnavailable,
				Msg:    "download link not found within the media player; the file might not be playable",
			}
		}
		s.log.Warn().Str("url", shareURL).Msg("share page structure unrecognizable")
		return nil, &Error{
			Kind:   KindNotFound,
			Reason: ReasonUnrecognizable,
			Msg:    "content structure unrecognizable or file unavailable",
		}
	}

	ref, err := url.Parse(src)
	if err != nil {
		return nil, parseError("player source is not a URL", err)
	}
	mediaURL := pageURL.ResolveReference(ref).String()
	if err := httputil.ValidateURL(mediaURL); err != nil {
		return nil, parseError("player source is not an https URL", err)
	}
	s.log.Debug().Str("media", mediaURL).Msg("found player source")

	return media.NewResolved(mediaURL, s.detectMIME(ctx, mediaURL, shareURL)), nil
}

// fetchDocument fetches a page and parses it into a goquery Document. The
// returned URL is the page's final location after redirects.
func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, s.pageTimeout)
	defer cancel()

	req, err := httputil.NewPageRequest(ctx, pageURL)
	if err != nil {
		return nil, nil, invalidInput("invalid share page URL", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, networkError("share page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, statusError("share page", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		if httputil.IsTimeout(err) {
			return nil, nil, networkError("share page", err)
		}
		return nil, nil, parseError("parsing share page HTML", err)
	}

	return doc, resp.Request.URL, nil
}
