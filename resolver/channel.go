package resolver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jonasfroeller/tube-visibility-inspector/fetcher"
	"github.com/jonasfroeller/tube-visibility-inspector/model"
)

// ChannelQuery holds the listing URLs derived from a free-form channel
// reference.
type ChannelQuery struct {
	Reference string
	Name      string
	BaseURL   string
	VideosURL string
	ShortsURL string
	host      string
}

// NewChannelQuery builds the listing URLs under host. Channel ids map to
// /channel/<id>, everything else is treated as a handle.
func NewChannelQuery(host, reference string) (ChannelQuery, error) {
	name := fetcher.NormalizeChannelReference(reference)
	if name == "" {
		return ChannelQuery{}, fmt.Errorf("%w: channel reference %q", ErrInvalidRequest, reference)
	}

	host = strings.TrimRight(host, "/")
	base := host + "/@" + url.PathEscape(name)
	if fetcher.IsChannelID(name) {
		base = host + "/channel/" + name
	}

	return ChannelQuery{
		Reference: reference,
		Name:      name,
		BaseURL:   base,
		VideosURL: base + "/videos",
		ShortsURL: base + "/shorts",
		host:      host,
	}, nil
}

// LegacyURLs lists older addressing schemes a channel may still answer on.
func (q ChannelQuery) LegacyURLs() []string {
	return []string{
		q.host + "/c/" + url.PathEscape(q.Name) + "/videos",
		q.host + "/user/" + url.PathEscape(q.Name) + "/videos",
		q.host + "/channel/" + url.PathEscape(q.Name) + "/videos",
		q.BaseURL + "/featured",
		q.BaseURL + "/playlists",
	}
}

// DiscoveryResult is an ordered set of ids with the listing they came from.
// The first hint recorded for an id is kept.
type DiscoveryResult struct {
	IDs   []model.YoutubeVideoID
	Hints map[model.YoutubeVideoID]model.ContentType
	seen  map[model.YoutubeVideoID]bool
}

func NewDiscoveryResult() *DiscoveryResult {
	return &DiscoveryResult{
		IDs:   []model.YoutubeVideoID{},
		Hints: map[model.YoutubeVideoID]model.ContentType{},
		seen:  map[model.YoutubeVideoID]bool{},
	}
}

// Add records id with an optional hint and reports whether it was new.
func (d *DiscoveryResult) Add(id model.YoutubeVideoID, hint model.ContentType) bool {
	if d.seen[id] {
		return false
	}
	d.seen[id] = true
	d.IDs = append(d.IDs, id)
	if hint != "" {
		d.Hints[id] = hint
	}

	return true
}

func (d *DiscoveryResult) AddAll(ids []model.YoutubeVideoID, hint model.ContentType) int {
	added := 0
	for _, id := range ids {
		if d.Add(id, hint) {
			added++
		}
	}

	return added
}

func (d *DiscoveryResult) Merge(other *DiscoveryResult) {
	for _, id := range other.IDs {
		d.Add(id, other.Hints[id])
	}
}

func (d *DiscoveryResult) Len() int {
	return len(d.IDs)
}
