package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

const (
	DefaultProbeDelay       = 250 * time.Millisecond
	DefaultDiscoveryTimeout = 2 * time.Minute
)

type DiscoveryConfig struct {
	Pagination PaginationConfig
	ProbeDelay time.Duration
	// Timeout bounds a whole discovery run. Zero disables it.
	Timeout time.Duration
}

// Discovery enumerates the videos of a channel.
type Discovery struct {
	channels  ChannelAPI
	pages     PageFetcher
	paginator *Paginator
	cfg       DiscoveryConfig
	observer  Observer
	logger    *slog.Logger
}

// NewDiscovery creates a Discovery. channels may be nil, in which case only
// scraping is used.
func NewDiscovery(channels ChannelAPI, pages PageFetcher, extract Extractor, cfg DiscoveryConfig, observer Observer, logger *slog.Logger) *Discovery {
	return &Discovery{
		channels:  channels,
		pages:     pages,
		paginator: NewPaginator(pages, extract, cfg.Pagination, observer, logger),
		cfg:       cfg,
		observer:  observer,
		logger:    logger,
	}
}

// Discover resolves reference to its videos. The Data API is tried first,
// the channel pages are scraped when it fails, and legacy URLs are probed in
// any case. Only an empty union is an error.
func (d *Discovery) Discover(ctx context.Context, reference string) (*DiscoveryResult, error) {
	query, err := NewChannelQuery(d.pages.BaseURL(), reference)
	if err != nil {
		return NewDiscoveryResult(), err
	}
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}
	logger := d.logger.With(slog.String("channel", query.Name))

	result, strategy, err := FirstSuccess(ctx, query,
		Strategy[ChannelQuery, *DiscoveryResult]{Name: "api", Run: d.structured},
		Strategy[ChannelQuery, *DiscoveryResult]{Name: "scrape", Run: d.scrape},
	)
	if err != nil {
		logger.Info("channel listings yielded nothing", slog.String("err", err.Error()))
		result = NewDiscoveryResult()
	} else {
		d.observer.StrategyUsed("discovery", strategy)
	}

	result.Merge(d.probeLegacy(ctx, query))
	logger.Info("channel discovered", slog.String("strategy", strategy), slog.Int("videos", result.Len()))

	if result.Len() == 0 {
		return result, fmt.Errorf("%w: %s", ErrDiscoveryExhausted, reference)
	}

	return result, nil
}

func (d *Discovery) structured(ctx context.Context, query ChannelQuery) (*DiscoveryResult, error) {
	if d.channels == nil {
		return nil, fmt.Errorf("%w: no api client", ErrDiscoveryUnavailable)
	}

	channelID, err := d.channels.SearchChannelID(ctx, query.Reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscoveryUnavailable, err)
	}
	playlistID, err := d.channels.UploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscoveryUnavailable, err)
	}
	ids, err := d.channels.ListPlaylistVideos(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscoveryUnavailable, err)
	}

	result := NewDiscoveryResult()
	result.AddAll(ids, "")
	if result.Len() == 0 {
		return nil, fmt.Errorf("%w: empty uploads playlist", ErrDiscoveryUnavailable)
	}

	return result, nil
}

// scrape walks the videos tab, then the shorts tab, hinting each id with the
// tab it was first seen on.
func (d *Discovery) scrape(ctx context.Context, query ChannelQuery) (*DiscoveryResult, error) {
	result := NewDiscoveryResult()
	result.AddAll(d.paginator.Paginate(ctx, query.VideosURL), model.ContentVideo)
	result.AddAll(d.paginator.Paginate(ctx, query.ShortsURL), model.ContentShort)
	if result.Len() == 0 {
		return nil, fmt.Errorf("%w: videos and shorts listings are empty", ErrDiscoveryExhausted)
	}

	return result, nil
}

func (d *Discovery) probeLegacy(ctx context.Context, query ChannelQuery) *DiscoveryResult {
	result := NewDiscoveryResult()
	limiter := rate.NewLimiter(rate.Every(d.cfg.ProbeDelay), 1)
	for _, u := range query.LegacyURLs() {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		ids, err := d.paginator.FirstPage(ctx, u)
		if err != nil {
			d.logger.Debug("legacy probe skipped", slog.String("url", u), slog.String("err", err.Error()))
			continue
		}
		if added := result.AddAll(ids, ""); added > 0 {
			d.observer.StrategyUsed("discovery", "legacy-probe")
		}
	}

	return result
}
