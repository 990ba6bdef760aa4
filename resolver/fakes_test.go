package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonasfroeller/tube-visibility-inspector/fetcher"
	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"golang.org/x/exp/slog"
)

const testHost = "https://yt.test"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tok(n int) string {
	return fmt.Sprintf("continuation-token-page-%02d", n)
}

// listing renders a minimal innertube-like document.
func listing(token string, ids ...string) string {
	var b strings.Builder
	b.WriteString(`{"contents":[`)
	for i, id := range ids {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"videoRenderer":{"videoId":"%s"}}`, id)
	}
	b.WriteString(`]`)
	if token != "" {
		fmt.Fprintf(&b, `,"continuationItemRenderer":{"continuationEndpoint":{"continuationCommand":{"token":"%s"}}}`, token)
	}
	b.WriteString(`}`)

	return b.String()
}

func ids(s ...string) []model.YoutubeVideoID {
	out := make([]model.YoutubeVideoID, len(s))
	for i, id := range s {
		out[i] = model.YoutubeVideoID(id)
	}
	return out
}

type fakePages struct {
	mu     sync.Mutex
	html   map[string]string
	browse map[string]string
	calls  []string
}

func newFakePages() *fakePages {
	return &fakePages{html: map[string]string{}, browse: map[string]string{}}
}

func (f *fakePages) BaseURL() string { return testHost }

func (f *fakePages) FetchHTML(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	doc, ok := f.html[url]
	if !ok {
		return "", &fetcher.StatusError{URL: url, StatusCode: http.StatusNotFound}
	}
	return doc, nil
}

func (f *fakePages) Browse(_ context.Context, req fetcher.BrowseRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := req.Client.Name + ":" + req.Continuation
	f.calls = append(f.calls, "browse "+key)
	doc, ok := f.browse[key]
	if !ok {
		return "", &fetcher.StatusError{URL: "browse", StatusCode: http.StatusBadRequest}
	}
	return doc, nil
}

func (f *fakePages) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

type fakeChannels struct {
	ids []model.YoutubeVideoID
	err error
}

func (f *fakeChannels) SearchChannelID(_ context.Context, reference string) (model.YoutubeChannelID, error) {
	if f.err != nil {
		return "", f.err
	}
	return "UC0123456789012345678901", nil
}

func (f *fakeChannels) UploadsPlaylistID(_ context.Context, channelID model.YoutubeChannelID) (string, error) {
	return "UU" + string(channelID)[2:], nil
}

func (f *fakeChannels) ListPlaylistVideos(_ context.Context, _ string) ([]model.YoutubeVideoID, error) {
	return f.ids, nil
}

type fakeMetadata struct {
	mu      sync.Mutex
	known   map[model.YoutubeVideoID]fetcher.Metadata
	err     error
	batches [][]model.YoutubeVideoID
}

func (f *fakeMetadata) FetchMetadata(_ context.Context, batch []model.YoutubeVideoID) (map[model.YoutubeVideoID]fetcher.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]model.YoutubeVideoID{}, batch...))
	if f.err != nil {
		return nil, f.err
	}
	if len(batch) > fetcher.MaxBatch {
		return nil, errors.New("batch too large")
	}
	out := map[model.YoutubeVideoID]fetcher.Metadata{}
	for _, id := range batch {
		if md, ok := f.known[id]; ok {
			out[id] = md
		}
	}
	return out, nil
}

func publicVideo(title, duration string) fetcher.Metadata {
	return fetcher.Metadata{
		Title:         title,
		PrivacyStatus: "public",
		Thumbnail:     "https://i.ytimg.com/vi/x/hqdefault.jpg",
		PublishedAt:   "2024-05-06T07:08:09Z",
		Duration:      duration,
	}
}

type fakeClassifier struct {
	statuses map[model.YoutubeVideoID]model.VideoStatus
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
	delay    time.Duration
}

func (f *fakeClassifier) ClassifyMissingVideo(_ context.Context, id model.YoutubeVideoID) model.VideoStatus {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if s, ok := f.statuses[id]; ok {
		return s
	}
	return model.StatusDeleted
}

type failingCache struct {
	upserts atomic.Int32
}

func (f *failingCache) Get(context.Context, []model.YoutubeVideoID, time.Time) (map[model.YoutubeVideoID]model.CacheEntry, error) {
	return nil, errors.New("connection refused")
}

func (f *failingCache) Upsert(context.Context, []model.CacheEntry) error {
	f.upserts.Add(1)
	return errors.New("connection refused")
}

type countingObserver struct {
	NopObserver
	mu         sync.Mutex
	strategies []string
	writeFails int
	stops      []string
}

func (o *countingObserver) StrategyUsed(stage, strategy string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.strategies = append(o.strategies, stage+"/"+strategy)
}

func (o *countingObserver) CacheWriteFailed(error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writeFails++
}

func (o *countingObserver) PaginationStopped(reason string, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stops = append(o.stops, reason)
}

func fastPagination() PaginationConfig {
	return PaginationConfig{MaxPages: DefaultMaxPages, PageDelay: 0, MaxTokenRefresh: DefaultMaxTokenRefresh}
}
