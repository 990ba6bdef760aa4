package metrics

import (
	"strconv"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"github.com/jonasfroeller/tube-visibility-inspector/resolver"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tvi"

var _ resolver.Observer = (*Metrics)(nil)

// Metrics exposes resolver events and served requests as Prometheus series.
type Metrics struct {
	cacheLookups      *prometheus.CounterVec
	cacheWriteFailed  prometheus.Counter
	batchLookups      prometheus.Counter
	batchMissing      prometheus.Counter
	missingClassified *prometheus.CounterVec
	strategies        *prometheus.CounterVec
	pages             *prometheus.CounterVec
	paginationStopped *prometheus.CounterVec
	pagesPerListing   prometheus.Histogram
	tokenRefresh      *prometheus.CounterVec
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_lookups_total",
			Help: "Video ids looked up in the cache, by result.",
		}, []string{"result"}),
		cacheWriteFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_write_failures_total",
			Help: "Failed cache upserts.",
		}),
		batchLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "batch_lookups_total",
			Help: "Data API videos.list calls.",
		}),
		batchMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "batch_missing_videos_total",
			Help: "Requested ids absent from videos.list responses.",
		}),
		missingClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "missing_classified_total",
			Help: "Missing videos classified from their watch page, by status.",
		}, []string{"status"}),
		strategies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "strategy_used_total",
			Help: "Successful strategies, by stage.",
		}, []string{"stage", "strategy"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "pages_fetched_total",
			Help: "Listing pages fetched, by continuation strategy.",
		}, []string{"strategy"}),
		paginationStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "pagination_stopped_total",
			Help: "Finished listing enumerations, by reason.",
		}, []string{"reason"}),
		pagesPerListing: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "pages_per_listing",
			Help:    "Pages consumed per listing enumeration.",
			Buckets: []float64{1, 2, 5, 10, 20, 35, 50},
		}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "token_refresh_total",
			Help: "Continuation token refresh attempts, by outcome.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Served HTTP requests.",
		}, []string{"path", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"path"}),
	}
	reg.MustRegister(
		m.cacheLookups, m.cacheWriteFailed, m.batchLookups, m.batchMissing,
		m.missingClassified, m.strategies, m.pages, m.paginationStopped,
		m.pagesPerListing, m.tokenRefresh, m.requests, m.requestDuration,
	)

	return m
}

func (m *Metrics) CacheLookup(hits, misses int) {
	m.cacheLookups.WithLabelValues("hit").Add(float64(hits))
	m.cacheLookups.WithLabelValues("miss").Add(float64(misses))
}

func (m *Metrics) CacheWriteFailed(error) {
	m.cacheWriteFailed.Inc()
}

func (m *Metrics) BatchLookup(_, missing int) {
	m.batchLookups.Inc()
	m.batchMissing.Add(float64(missing))
}

func (m *Metrics) MissingClassified(status model.VideoStatus) {
	m.missingClassified.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) StrategyUsed(stage, strategy string) {
	m.strategies.WithLabelValues(stage, strategy).Inc()
}

func (m *Metrics) PageFetched(strategy string) {
	m.pages.WithLabelValues(strategy).Inc()
}

func (m *Metrics) PaginationStopped(reason string, pages int) {
	m.paginationStopped.WithLabelValues(reason).Inc()
	m.pagesPerListing.Observe(float64(pages))
}

func (m *Metrics) TokenRefresh(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	m.tokenRefresh.WithLabelValues(result).Inc()
}

// RequestServed records one HTTP response.
func (m *Metrics) RequestServed(path string, status int, took time.Duration) {
	m.requests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path).Observe(took.Seconds())
}
