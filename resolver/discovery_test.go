package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/jonasfroeller/tube-visibility-inspector/fetcher"
	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shortsURL = testHost + "/@example/shorts"

func newTestDiscovery(channels ChannelAPI, pages *fakePages, obs Observer) *Discovery {
	cfg := DiscoveryConfig{Pagination: fastPagination()}
	return NewDiscovery(channels, pages, fetcher.NewExtractor(), cfg, obs, testLogger())
}

func TestDiscoverStructured(t *testing.T) {
	pages := newFakePages()
	obs := &countingObserver{}
	d := newTestDiscovery(&fakeChannels{ids: ids(vidA, vidB, vidA)}, pages, obs)

	got, err := d.Discover(context.Background(), "@example")
	require.NoError(t, err)
	assert.Equal(t, ids(vidA, vidB), got.IDs)
	assert.Empty(t, got.Hints)
	assert.Equal(t, []string{"discovery/api"}, obs.strategies)
	assert.Zero(t, pages.count(videosURL), "no scraping after structured success")
}

func TestDiscoverShortsOnly(t *testing.T) {
	pages := newFakePages()
	pages.html[videosURL] = listing("")
	pages.html[shortsURL] = listing("", "S1xxxxxxxxx", "S2xxxxxxxxx")

	d := newTestDiscovery(&fakeChannels{err: errors.New("quota exceeded")}, pages, NopObserver{})

	got, err := d.Discover(context.Background(), "@example")
	require.NoError(t, err)
	assert.Equal(t, ids("S1xxxxxxxxx", "S2xxxxxxxxx"), got.IDs)
	assert.Equal(t, map[model.YoutubeVideoID]model.ContentType{
		"S1xxxxxxxxx": model.ContentShort,
		"S2xxxxxxxxx": model.ContentShort,
	}, got.Hints)
}

func TestDiscoverFirstHintWins(t *testing.T) {
	pages := newFakePages()
	pages.html[videosURL] = listing("", vidA, vidB)
	pages.html[shortsURL] = listing("", vidB, vidC)

	d := newTestDiscovery(nil, pages, NopObserver{})

	got, err := d.Discover(context.Background(), "https://www.youtube.com/@example")
	require.NoError(t, err)
	assert.Equal(t, ids(vidA, vidB, vidC), got.IDs)
	assert.Equal(t, model.ContentVideo, got.Hints[vidB])
	assert.Equal(t, model.ContentShort, got.Hints[vidC])
}

func TestDiscoverLegacyProbesSupplement(t *testing.T) {
	pages := newFakePages()
	pages.html[testHost+"/user/example/videos"] = listing("", vidC, vidA)
	pages.html[testHost+"/@example/featured"] = listing(tok(9), vidD)

	obs := &countingObserver{}
	d := newTestDiscovery(&fakeChannels{ids: ids(vidA)}, pages, obs)

	got, err := d.Discover(context.Background(), "@example")
	require.NoError(t, err)
	assert.Equal(t, ids(vidA, vidC, vidD), got.IDs)
	assert.Empty(t, got.Hints)
	for _, u := range (ChannelQuery{host: testHost, Name: "example", BaseURL: testHost + "/@example"}).LegacyURLs() {
		assert.Equal(t, 1, pages.count(u), u)
	}
	assert.Zero(t, pages.count(testHost+"/@example/featured?continuation="+tok(9)), "probes read the first page only")
	assert.Contains(t, obs.strategies, "discovery/legacy-probe")
}

func TestDiscoverExhausted(t *testing.T) {
	d := newTestDiscovery(&fakeChannels{err: fetcher.ErrNotFound}, newFakePages(), NopObserver{})

	_, err := d.Discover(context.Background(), "@nobody")
	assert.True(t, errors.Is(err, ErrDiscoveryExhausted))
}

func TestDiscoverInvalidReference(t *testing.T) {
	d := newTestDiscovery(nil, newFakePages(), NopObserver{})

	_, err := d.Discover(context.Background(), "   ")
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestStructuredDiscoveryErrors(t *testing.T) {
	d := newTestDiscovery(nil, newFakePages(), NopObserver{})
	query, err := NewChannelQuery(testHost, "@example")
	require.NoError(t, err)

	_, err = d.structured(context.Background(), query)
	assert.True(t, errors.Is(err, ErrDiscoveryUnavailable))

	d = newTestDiscovery(&fakeChannels{err: fetcher.ErrNotFound}, newFakePages(), NopObserver{})
	_, err = d.structured(context.Background(), query)
	assert.True(t, errors.Is(err, ErrDiscoveryUnavailable))
	assert.True(t, errors.Is(err, fetcher.ErrNotFound))
}
