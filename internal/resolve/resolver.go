// Package resolve turns a file host share page URL into a direct, fetchable
// media URL and its type. Two strategies exist: the provider's content API,
// which needs an account token, and scraping the share page's media player.
package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reclink/internal/config"
	"reclink/internal/httputil"
	"reclink/internal/media"
)

// MediaResolver is anything that can resolve a share page.
type MediaResolver interface {
	Resolve(ctx context.Context, shareURL string) (*media.Resolved, error)
}

// Strategy is one way of resolving a share page.
type Strategy interface {
	MediaResolver
	Name() string
}

// Options configures a Resolver.
type Options struct {
	APIBase       string
	AccountToken  string
	Strategy      string   // config.StrategyAuto, StrategyAPI or StrategyScrape
	ShareHosts    []string // accepted share page hosts; empty accepts any
	Client        *http.Client
	LookupTimeout time.Duration // content API and media sniffing
	PageTimeout   time.Duration // share page fetch
	Logger        zerolog.Logger
}

// Resolver validates share URLs and runs the configured strategies in order,
// moving to the next only when a strategy failed in a way another might not.
type Resolver struct {
	strategies []Strategy
	hosts      []string
	log        zerolog.Logger
}

// New builds a Resolver. With a token and the auto strategy, the content API
// is tried first and scraping is the fallback.
func New(opts Options) (*Resolver, error) {
	client := opts.Client
	if client == nil {
		client = httputil.NewClient(0)
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 15 * time.Second
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 20 * time.Second
	}

	api := func() Strategy {
		return NewContentAPI(opts.APIBase, opts.AccountToken, client, opts.LookupTimeout, opts.Logger)
	}
	scraper := NewScraper(client, opts.PageTimeout, opts.LookupTimeout, opts.Logger)

	var strategies []Strategy
	switch strings.ToLower(opts.Strategy) {
	case config.StrategyAuto, "":
		if opts.AccountToken != "" {
			strategies = append(strategies, api())
		}
		strategies = append(strategies, scraper)
	case config.StrategyAPI:
		if opts.AccountToken == "" {
			return nil, &Error{Kind: KindConfig, Msg: "content API strategy requires an account token"}
		}
		strategies = append(strategies, api())
	case config.StrategyScrape:
		strategies = append(strategies, scraper)
	default:
		return nil, &Error{Kind: KindConfig, Msg: fmt.Sprintf("unknown resolution strategy %q", opts.Strategy)}
	}

	hosts := make([]string, 0, len(opts.ShareHosts))
	for _, h := range opts.ShareHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}

	return &Resolver{strategies: strategies, hosts: hosts, log: opts.Logger}, nil
}

// Strategies returns the names of the strategies in the order they are tried.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the direct media URL for shareURL. The media type is always
// derived from the final MIME, whatever the strategy reported.
func (r *Resolver) Resolve(ctx context.Context, shareURL string) (*media.Resolved, error) {
	shareURL = strings.TrimSpace(shareURL)
	if err := r.validate(shareURL); err != nil {
		return nil, err
	}

	var lastErr error
	for i, s := range r.strategies {
		res, err := s.Resolve(ctx, shareURL)
		if err == nil {
			r.log.Debug().Str("strategy", s.Name()).Str("url", shareURL).Str("mime", res.MIME).Msg("resolved share page")
			return media.NewResolved(res.MediaURL, res.MIME), nil
		}
		lastErr = err

		if i == len(r.strategies)-1 || !fallbackAllowed(err) {
			break
		}
		r.log.Warn().Err(err).Str("strategy", s.Name()).Str("next", r.strategies[i+1].Name()).Msg("resolution failed, falling back")
	}
	return nil, lastErr
}

func (r *Resolver) validate(shareURL string) error {
	if shareURL == "" {
		return invalidInput("share page URL is required", nil)
	}
	if err := httputil.ValidateURL(shareURL); err != nil {
		return invalidInput("invalid share page URL", err)
	}
	u, _ := url.Parse(shareURL)
	if !r.hostAllowed(u.Hostname()) {
		return invalidInput(fmt.Sprintf("%q is not a share page host", u.Hostname()), nil)
	}
	if _, err := ContentID(shareURL); err != nil {
		return err
	}
	return nil
}

func (r *Resolver) hostAllowed(host string) bool {
	if len(r.hosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, h := range r.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ContentID extracts the content identifier from the last path segment of a
// share page URL, e.g. "https://gofile.io/d/AbC12x" -> "AbC12x".
func ContentID(shareURL string) (string, error) {
	u, err := url.Parse(shareURL)
	if err != nil {
		return "", invalidInput("invalid share page URL", err)
	}

	p := strings.TrimRight(u.Path, "/")
	id := p[strings.LastIndex(p, "/")+1:]
	if err := httputil.ValidateID(id); err != nil {
		return "", invalidInput("share page URL has no content ID", err)
	}
	return id, nil
}
