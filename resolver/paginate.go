package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonasfroeller/tube-visibility-inspector/fetcher"
	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxPages        = 50
	DefaultPageDelay       = 500 * time.Millisecond
	DefaultMaxTokenRefresh = 3
)

// refreshQueries re-request a listing in a different view to obtain a fresh
// continuation token.
var refreshQueries = []string{
	"view=0&sort=dd",
	"flow=grid&view=0",
	"sort=p&view=0",
}

var errNoProgress = errors.New("no new videos")

// ContinuationState tracks one listing's enumeration.
type ContinuationState struct {
	Token     string
	Pages     int
	Refreshes int
}

type PaginationConfig struct {
	MaxPages        int
	PageDelay       time.Duration
	MaxTokenRefresh int
}

func (c PaginationConfig) withDefaults() PaginationConfig {
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.PageDelay < 0 {
		c.PageDelay = DefaultPageDelay
	}
	if c.MaxTokenRefresh < 0 {
		c.MaxTokenRefresh = DefaultMaxTokenRefresh
	}

	return c
}

type page struct {
	ids   []model.YoutubeVideoID
	token string
}

// Paginator walks a channel listing through its continuation tokens.
type Paginator struct {
	pages    PageFetcher
	extract  Extractor
	cfg      PaginationConfig
	observer Observer
	logger   *slog.Logger
}

func NewPaginator(pages PageFetcher, extract Extractor, cfg PaginationConfig, observer Observer, logger *slog.Logger) *Paginator {
	return &Paginator{
		pages:    pages,
		extract:  extract,
		cfg:      cfg.withDefaults(),
		observer: observer,
		logger:   logger,
	}
}

// FirstPage fetches a listing without following continuations.
func (p *Paginator) FirstPage(ctx context.Context, listingURL string) ([]model.YoutubeVideoID, error) {
	doc, err := p.pages.FetchHTML(ctx, listingURL)
	if err != nil {
		return []model.YoutubeVideoID{}, fmt.Errorf("%w: %w", ErrPageFetch, err)
	}
	p.observer.PageFetched("first-page")

	return p.extract.ExtractVideoIDs(doc), nil
}

// Paginate returns every id reachable from listingURL in discovery order.
// Failures only shorten the result.
func (p *Paginator) Paginate(ctx context.Context, listingURL string) []model.YoutubeVideoID {
	logger := p.logger.With(slog.String("listing", listingURL))
	found := NewDiscoveryResult()
	limiter := rate.NewLimiter(rate.Every(p.cfg.PageDelay), 1)

	if err := limiter.Wait(ctx); err != nil {
		return found.IDs
	}
	doc, err := p.pages.FetchHTML(ctx, listingURL)
	if err != nil {
		logger.Info("listing unavailable", slog.String("err", err.Error()))
		p.observer.PaginationStopped("first-page-failed", 0)
		return found.IDs
	}
	p.observer.PageFetched("first-page")
	found.AddAll(p.extract.ExtractVideoIDs(doc), "")

	state := &ContinuationState{Token: p.extract.ExtractContinuationToken(doc), Pages: 1}
	usedTokens := map[string]bool{}
	primary, alternative := p.strategies(listingURL, found)

	reason := "exhausted"
	for state.Token != "" {
		if state.Pages >= p.cfg.MaxPages {
			reason = "page-limit"
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			reason = "deadline"
			break
		}
		usedTokens[state.Token] = true

		next, name, err := FirstSuccess(ctx, state.Token, primary...)
		if err != nil {
			var altErr error
			next, name, altErr = FirstSuccess(ctx, state.Token, alternative)
			if altErr != nil {
				err = errors.Join(err, altErr)
			} else {
				err = nil
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				reason = "deadline"
				break
			}
			if errors.Is(err, errNoProgress) {
				reason = "no-progress"
				break
			}
			logger.Debug("all continuation strategies failed", slog.String("err", err.Error()))
			token, ok := p.refreshToken(ctx, listingURL, state, usedTokens, found)
			if !ok {
				reason = "refresh-exhausted"
				break
			}
			state.Token = token
			continue
		}

		p.observer.PageFetched(name)
		found.AddAll(next.ids, "")
		state.Pages++
		state.Token = next.token
		if usedTokens[state.Token] {
			reason = "repeated-token"
			break
		}
	}

	if reason != "exhausted" {
		logger.Info("pagination stopped early", slog.String("reason", reason), slog.Int("pages", state.Pages), slog.Int("videos", found.Len()))
	}
	p.observer.PaginationStopped(reason, state.Pages)

	return found.IDs
}

// strategies builds the continuation fetchers for one listing. A strategy
// fails with errNoProgress when its page holds nothing new.
func (p *Paginator) strategies(listingURL string, found *DiscoveryResult) ([]Strategy[string, page], Strategy[string, page]) {
	fromDoc := func(doc string) (page, error) {
		var fresh []model.YoutubeVideoID
		for _, id := range p.extract.ExtractVideoIDs(doc) {
			if !found.seen[id] {
				fresh = append(fresh, id)
			}
		}
		if len(fresh) == 0 {
			return page{}, errNoProgress
		}

		return page{ids: fresh, token: p.extract.ExtractContinuationToken(doc)}, nil
	}
	get := func(query string) func(context.Context, string) (page, error) {
		return func(ctx context.Context, token string) (page, error) {
			doc, err := p.pages.FetchHTML(ctx, withQuery(listingURL, query+url.QueryEscape(token)))
			if err != nil {
				return page{}, fmt.Errorf("%w: %w", ErrPageFetch, err)
			}
			return fromDoc(doc)
		}
	}
	browse := func(client fetcher.InnertubeClient) func(context.Context, string) (page, error) {
		return func(ctx context.Context, token string) (page, error) {
			doc, err := p.pages.Browse(ctx, fetcher.BrowseRequest{Continuation: token, Client: client})
			if err != nil {
				return page{}, fmt.Errorf("%w: %w", ErrPageFetch, err)
			}
			return fromDoc(doc)
		}
	}

	primary := []Strategy[string, page]{
		{Name: "query", Run: get("continuation=")},
		{Name: "grid", Run: get("view=0&sort=dd&flow=grid&continuation=")},
		{Name: "browse", Run: browse(fetcher.ClientWeb)},
	}
	alternative := Strategy[string, page]{Name: "browse-mobile", Run: browse(fetcher.ClientMobileWeb)}

	return primary, alternative
}

// refreshToken reloads the listing under alternate views until one yields a
// token that was not used yet. Attempts count against the listing's budget.
func (p *Paginator) refreshToken(ctx context.Context, listingURL string, state *ContinuationState, used map[string]bool, found *DiscoveryResult) (string, bool) {
	remaining := p.cfg.MaxTokenRefresh - state.Refreshes
	if remaining <= 0 {
		return "", false
	}

	operation := func() (string, error) {
		query := refreshQueries[state.Refreshes%len(refreshQueries)]
		state.Refreshes++
		doc, err := p.pages.FetchHTML(ctx, withQuery(listingURL, query))
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrPageFetch, err)
		}
		found.AddAll(p.extract.ExtractVideoIDs(doc), "")
		token := p.extract.ExtractContinuationToken(doc)
		if token == "" || used[token] {
			return "", errors.New("no fresh continuation token")
		}
		return token, nil
	}

	token, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.cfg.PageDelay)),
		backoff.WithMaxTries(uint(remaining)),
	)
	if err != nil {
		p.logger.Debug("token refresh failed", slog.String("listing", listingURL), slog.String("err", err.Error()))
		p.observer.TokenRefresh(false)
		return "", false
	}
	p.observer.TokenRefresh(true)

	return token, true
}

func withQuery(u, query string) string {
	if strings.Contains(u, "?") {
		return u + "&" + query
	}
	return u + "?" + query
}
