package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/fetcher"
	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"github.com/jonasfroeller/tube-visibility-inspector/storage"
	"golang.org/x/exp/slog"
)

type ChannelAPI interface {
	SearchChannelID(ctx context.Context, reference string) (model.YoutubeChannelID, error)
	UploadsPlaylistID(ctx context.Context, channelID model.YoutubeChannelID) (string, error)
	ListPlaylistVideos(ctx context.Context, playlistID string) ([]model.YoutubeVideoID, error)
}

type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, ids []model.YoutubeVideoID) (map[model.YoutubeVideoID]fetcher.Metadata, error)
}

type PageFetcher interface {
	BaseURL() string
	FetchHTML(ctx context.Context, url string) (string, error)
	Browse(ctx context.Context, req fetcher.BrowseRequest) (string, error)
}

type Extractor interface {
	ExtractVideoIDs(doc string) []model.YoutubeVideoID
	ExtractContinuationToken(doc string) string
}

type Classifier interface {
	ClassifyMissingVideo(ctx context.Context, id model.YoutubeVideoID) model.VideoStatus
}

type Request struct {
	VideoIDs         []string `json:"videoIds"`
	ChannelReference string   `json:"channelReference"`
	IgnoreCache      bool     `json:"ignoreCache"`
}

type Response struct {
	Results []model.VideoRecord `json:"results"`
}

// Dependencies are the collaborators of an Engine. Channels and Metadata are
// nil when no Data API key is configured.
type Dependencies struct {
	Channels   ChannelAPI
	Metadata   MetadataFetcher
	Pages      PageFetcher
	Extractor  Extractor
	Classifier Classifier
	Cache      storage.CacheRepository
	Observer   Observer
}

type Config struct {
	Discovery DiscoveryConfig
	Status    StatusConfig
}

func DefaultConfig() Config {
	return Config{
		Discovery: DiscoveryConfig{
			Pagination: PaginationConfig{
				MaxPages:        DefaultMaxPages,
				PageDelay:       DefaultPageDelay,
				MaxTokenRefresh: DefaultMaxTokenRefresh,
			},
			ProbeDelay: DefaultProbeDelay,
			Timeout:    DefaultDiscoveryTimeout,
		},
		Status: StatusConfig{
			TTL:     DefaultCacheTTL,
			Workers: DefaultWorkers,
		},
	}
}

// Engine answers visibility requests. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	discovery *Discovery
	status    *StatusResolver
	hasAPI    bool
	logger    *slog.Logger
}

func NewEngine(deps Dependencies, cfg Config, logger *slog.Logger) *Engine {
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}

	return &Engine{
		discovery: NewDiscovery(deps.Channels, deps.Pages, deps.Extractor, cfg.Discovery, deps.Observer, logger),
		status:    NewStatusResolver(deps.Cache, deps.Metadata, deps.Classifier, cfg.Status, deps.Observer, logger),
		hasAPI:    deps.Metadata != nil,
		logger:    logger,
	}
}

// Resolve runs one request: discovery when a channel is given, then status
// resolution of the explicit and discovered ids.
func (e *Engine) Resolve(ctx context.Context, req Request) (Response, error) {
	if !e.hasAPI {
		return Response{Results: []model.VideoRecord{}}, fmt.Errorf("%w: YOUTUBE_API_KEY is not set", ErrConfig)
	}

	explicit, err := parseVideoIDs(req.VideoIDs)
	if err != nil {
		return Response{Results: []model.VideoRecord{}}, err
	}
	reference := strings.TrimSpace(req.ChannelReference)
	if len(explicit) == 0 && reference == "" {
		return Response{Results: []model.VideoRecord{}}, fmt.Errorf("%w: provide video ids or a channel reference", ErrInvalidRequest)
	}

	start := time.Now()
	all := NewDiscoveryResult()
	all.AddAll(explicit, "")
	var discovered []model.YoutubeVideoID
	if reference != "" {
		found, err := e.discovery.Discover(ctx, reference)
		if err != nil {
			return Response{Results: []model.VideoRecord{}}, err
		}
		discovered = found.IDs
		all.Merge(found)
		for id, hint := range found.Hints {
			all.Hints[id] = hint
		}
	}

	records, err := e.status.Resolve(ctx, all.IDs, all.Hints, req.IgnoreCache)
	if err != nil {
		return Response{Results: []model.VideoRecord{}}, err
	}
	results := Aggregate(explicit, discovered, records)
	e.logger.Info("request resolved",
		slog.Int("explicit", len(explicit)),
		slog.Int("discovered", len(discovered)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)),
	)

	return Response{Results: results}, nil
}

func parseVideoIDs(raw []string) ([]model.YoutubeVideoID, error) {
	ids := make([]model.YoutubeVideoID, 0, len(raw))
	seen := make(map[model.YoutubeVideoID]bool, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		id, err := model.ParseVideoID(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidRequest, r, err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	return ids, nil
}
