package resolver

import (
	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"golang.org/x/exp/slog"
)

// Observer receives progress events from a resolution. Implementations must
// be safe for concurrent use.
type Observer interface {
	CacheLookup(hits, misses int)
	CacheWriteFailed(err error)
	BatchLookup(requested, missing int)
	MissingClassified(status model.VideoStatus)
	StrategyUsed(stage, strategy string)
	PageFetched(strategy string)
	PaginationStopped(reason string, pages int)
	TokenRefresh(ok bool)
}

type NopObserver struct{}

func (NopObserver) CacheLookup(int, int) {}
func (NopObserver) CacheWriteFailed(error) {}
func (NopObserver) BatchLookup(int, int) {}
func (NopObserver) MissingClassified(model.VideoStatus) {}
func (NopObserver) StrategyUsed(string, string) {}
func (NopObserver) PageFetched(string) {}
func (NopObserver) PaginationStopped(string, int) {}
func (NopObserver) TokenRefresh(bool) {}

// LogObserver writes every event to a logger at debug level, except failed
// cache writes which are warnings.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) CacheLookup(hits, misses int) {
	o.logger.Debug("cache lookup", slog.Int("hits", hits), slog.Int("misses", misses))
}

func (o *LogObserver) CacheWriteFailed(err error) {
	o.logger.Warn("cache write failed", slog.String("err", err.Error()))
}

func (o *LogObserver) BatchLookup(requested, missing int) {
	o.logger.Debug("batch lookup", slog.Int("requested", requested), slog.Int("missing", missing))
}

func (o *LogObserver) MissingClassified(status model.VideoStatus) {
	o.logger.Debug("missing video classified", slog.String("status", string(status)))
}

func (o *LogObserver) StrategyUsed(stage, strategy string) {
	o.logger.Debug("strategy used", slog.String("stage", stage), slog.String("strategy", strategy))
}

func (o *LogObserver) PageFetched(strategy string) {
	o.logger.Debug("page fetched", slog.String("strategy", strategy))
}

func (o *LogObserver) PaginationStopped(reason string, pages int) {
	o.logger.Debug("pagination stopped", slog.String("reason", reason), slog.Int("pages", pages))
}

func (o *LogObserver) TokenRefresh(ok bool) {
	o.logger.Debug("token refresh", slog.Bool("ok", ok))
}

// Observers fans every event out to all members.
type Observers []Observer

func (obs Observers) CacheLookup(hits, misses int) {
	for _, o := range obs {
		o.CacheLookup(hits, misses)
	}
}

func (obs Observers) CacheWriteFailed(err error) {
	for _, o := range obs {
		o.CacheWriteFailed(err)
	}
}

func (obs Observers) BatchLookup(requested, missing int) {
	for _, o := range obs {
		o.BatchLookup(requested, missing)
	}
}

func (obs Observers) MissingClassified(status model.VideoStatus) {
	for _, o := range obs {
		o.MissingClassified(status)
	}
}

func (obs Observers) StrategyUsed(stage, strategy string) {
	for _, o := range obs {
		o.StrategyUsed(stage, strategy)
	}
}

func (obs Observers) PageFetched(strategy string) {
	for _, o := range obs {
		o.PageFetched(strategy)
	}
}

func (obs Observers) PaginationStopped(reason string, pages int) {
	for _, o := range obs {
		o.PaginationStopped(reason, pages)
	}
}

func (obs Observers) TokenRefresh(ok bool) {
	for _, o := range obs {
		o.TokenRefresh(ok)
	}
}
