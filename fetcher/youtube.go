package fetcher

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"google.golang.org/api/youtube/v3"
)

var ErrNotFound = errors.New("not found")

var channelIDRE = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)

// IsChannelID reports whether s has the shape of a canonical channel id.
func IsChannelID(s string) bool {
	return channelIDRE.MatchString(s)
}

// NormalizeChannelReference reduces a handle, legacy name or channel URL to
// the bare identifier: "@name" and "https://www.youtube.com/@name/videos"
// both become "name".
func NormalizeChannelReference(ref string) string {
	s := strings.TrimSpace(ref)
	if i := strings.Index(s, "youtube.com/"); i >= 0 {
		path := s[i+len("youtube.com/"):]
		if j := strings.IndexAny(path, "?#"); j >= 0 {
			path = path[:j]
		}
		segs := strings.Split(strings.Trim(path, "/"), "/")
		switch {
		case len(segs) > 1 && (segs[0] == "channel" || segs[0] == "c" || segs[0] == "user"):
			s = segs[1]
		default:
			s = segs[0]
		}
	}

	return strings.TrimPrefix(s, "@")
}

type Youtube struct {
	Client *youtube.Service
}

func NewYoutube(client *youtube.Service) *Youtube {
	return &Youtube{Client: client}
}

// SearchChannelID resolves a free-form channel reference to a channel id.
func (y *Youtube) SearchChannelID(ctx context.Context, reference string) (model.YoutubeChannelID, error) {
	q := NormalizeChannelReference(reference)
	if q == "" {
		return "", fmt.Errorf("empty channel reference: %w", ErrNotFound)
	}
	if IsChannelID(q) {
		return model.YoutubeChannelID(q), nil
	}

	response, err := y.Client.Search.
		List([]string{"snippet"}).
		Q(q).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("search channel %q: %w", q, err)
	}
	if len(response.Items) == 0 || response.Items[0].Id == nil || response.Items[0].Id.ChannelId == "" {
		return "", fmt.Errorf("channel %q: %w", q, ErrNotFound)
	}

	return model.YoutubeChannelID(response.Items[0].Id.ChannelId), nil
}

func (y *Youtube) UploadsPlaylistID(ctx context.Context, channelID model.YoutubeChannelID) (string, error) {
	response, err := y.Client.Channels.
		List([]string{"contentDetails"}).
		Id(string(channelID)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("channel %s: %w", channelID, err)
	}
	if len(response.Items) == 0 {
		return "", fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	details := response.Items[0].ContentDetails
	if details == nil || details.RelatedPlaylists == nil || details.RelatedPlaylists.Uploads == "" {
		return "", fmt.Errorf("uploads playlist of %s: %w", channelID, ErrNotFound)
	}

	return details.RelatedPlaylists.Uploads, nil
}

// ListPlaylistVideos follows the playlist's page tokens until exhausted.
func (y *Youtube) ListPlaylistVideos(ctx context.Context, playlistID string) ([]model.YoutubeVideoID, error) {
	ids := []model.YoutubeVideoID{}
	seenTokens := map[string]bool{}
	token := ""
	for {
		call := y.Client.PlaylistItems.
			List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(MaxBatch).
			Context(ctx)
		if token != "" {
			call.PageToken(token)
		}

		response, err := call.Do()
		if err != nil {
			return []model.YoutubeVideoID{}, fmt.Errorf("playlist %s: %w", playlistID, err)
		}
		for _, item := range response.Items {
			if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
				continue
			}
			ids = append(ids, model.YoutubeVideoID(item.ContentDetails.VideoId))
		}

		token = response.NextPageToken
		if token == "" || seenTokens[token] {
			break
		}
		seenTokens[token] = true
	}

	if len(ids) == 0 {
		return []model.YoutubeVideoID{}, fmt.Errorf("playlist %s is empty: %w", playlistID, ErrNotFound)
	}

	return ids, nil
}

// FetchMetadata looks up at most MaxBatch ids. Ids the API does not know are
// absent from the result.
func (y *Youtube) FetchMetadata(ctx context.Context, ytIDs []model.YoutubeVideoID) (map[model.YoutubeVideoID]Metadata, error) {
	if len(ytIDs) > MaxBatch {
		return map[model.YoutubeVideoID]Metadata{}, fmt.Errorf("batch of %d exceeds %d ids", len(ytIDs), MaxBatch)
	}
	if len(ytIDs) == 0 {
		return map[model.YoutubeVideoID]Metadata{}, nil
	}

	strIDs := make([]string, len(ytIDs))
	for i, id := range ytIDs {
		strIDs[i] = string(id)
	}
	response, err := y.Client.Videos.
		List([]string{"snippet", "status", "contentDetails"}).
		Id(strIDs...).
		Context(ctx).
		Do()
	if err != nil {
		return map[model.YoutubeVideoID]Metadata{}, err
	}

	mds := make(map[model.YoutubeVideoID]Metadata, len(response.Items))
	for _, item := range response.Items {
		md := Metadata{}
		if item.Snippet != nil {
			md.Title = item.Snippet.Title
			md.PublishedAt = item.Snippet.PublishedAt
			md.Thumbnail = bestThumbnail(item.Snippet.Thumbnails)
		}
		if item.Status != nil {
			md.PrivacyStatus = item.Status.PrivacyStatus
		}
		if item.ContentDetails != nil {
			md.Duration = item.ContentDetails.Duration
		}

		mds[model.YoutubeVideoID(item.Id)] = md
	}

	return mds, nil
}

func bestThumbnail(td *youtube.ThumbnailDetails) string {
	if td == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{td.Maxres, td.Standard, td.High, td.Medium, td.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}

	return ""
}
