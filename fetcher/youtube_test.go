package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func newTestYoutube(t *testing.T, h http.HandlerFunc) *Youtube {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := youtube.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	return NewYoutube(svc)
}

func TestNormalizeChannelReference(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"@example", "example"},
		{"  example  ", "example"},
		{"https://www.youtube.com/@example", "example"},
		{"https://www.youtube.com/@example/videos?view=0", "example"},
		{"https://youtube.com/c/Legacy/featured", "Legacy"},
		{"https://www.youtube.com/user/oldname", "oldname"},
		{"https://www.youtube.com/channel/UCabcdefghijklmnopqrstuv#about", "UCabcdefghijklmnopqrstuv"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeChannelReference(tc.in))
		})
	}
}

func TestSearchChannelID(t *testing.T) {
	t.Run("channel id short circuits", func(t *testing.T) {
		yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("unexpected request %s", r.URL.Path)
		})
		got, err := yt.SearchChannelID(context.Background(), "https://www.youtube.com/channel/UCabcdefghijklmnopqrstuv")
		require.NoError(t, err)
		assert.Equal(t, model.YoutubeChannelID("UCabcdefghijklmnopqrstuv"), got)
	})

	t.Run("search", func(t *testing.T) {
		yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/youtube/v3/search", r.URL.Path)
			assert.Equal(t, "example", r.URL.Query().Get("q"))
			assert.Equal(t, "channel", r.URL.Query().Get("type"))
			fmt.Fprint(w, `{"items":[{"id":{"kind":"youtube#channel","channelId":"UC0123456789012345678901"}}]}`)
		})
		got, err := yt.SearchChannelID(context.Background(), "@example")
		require.NoError(t, err)
		assert.Equal(t, model.YoutubeChannelID("UC0123456789012345678901"), got)
	})

	t.Run("no result", func(t *testing.T) {
		yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"items":[]}`)
		})
		_, err := yt.SearchChannelID(context.Background(), "@nobody")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("api error", func(t *testing.T) {
		yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"code":403,"message":"quota exceeded"}}`)
		})
		_, err := yt.SearchChannelID(context.Background(), "@example")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
	})
}

func TestUploadsPlaylistID(t *testing.T) {
	yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/channels", r.URL.Path)
		if r.URL.Query().Get("id") == "UCmissing" {
			fmt.Fprint(w, `{"items":[]}`)
			return
		}
		fmt.Fprint(w, `{"items":[{"id":"UCx","contentDetails":{"relatedPlaylists":{"uploads":"UUx"}}}]}`)
	})

	got, err := yt.UploadsPlaylistID(context.Background(), "UCx")
	require.NoError(t, err)
	assert.Equal(t, "UUx", got)

	_, err = yt.UploadsPlaylistID(context.Background(), "UCmissing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListPlaylistVideos(t *testing.T) {
	pages := map[string]string{
		"":   `{"nextPageToken":"p2","items":[{"contentDetails":{"videoId":"AAAAAAAAAAA"}},{"contentDetails":{"videoId":"BBBBBBBBBBB"}}]}`,
		"p2": `{"nextPageToken":"p3","items":[{"contentDetails":{"videoId":"CCCCCCCCCCC"}},{"contentDetails":{}}]}`,
		"p3": `{"items":[{"contentDetails":{"videoId":"DDDDDDDDDDD"}}]}`,
	}
	yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/playlistItems", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("maxResults"))
		fmt.Fprint(w, pages[r.URL.Query().Get("pageToken")])
	})

	got, err := yt.ListPlaylistVideos(context.Background(), "UUx")
	require.NoError(t, err)
	assert.Equal(t, []model.YoutubeVideoID{"AAAAAAAAAAA", "BBBBBBBBBBB", "CCCCCCCCCCC", "DDDDDDDDDDD"}, got)
}

func TestListPlaylistVideosStopsOnRepeatedToken(t *testing.T) {
	calls := 0
	yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"nextPageToken":"same","items":[{"contentDetails":{"videoId":"AAAAAAAAAAA"}}]}`)
	})

	got, err := yt.ListPlaylistVideos(context.Background(), "UUx")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, calls)
}

func TestListPlaylistVideosEmpty(t *testing.T) {
	yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	})

	_, err := yt.ListPlaylistVideos(context.Background(), "UUx")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFetchMetadata(t *testing.T) {
	yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/videos", r.URL.Path)
		assert.ElementsMatch(t, []string{"snippet", "status", "contentDetails"}, strings.Split(strings.Join(r.URL.Query()["part"], ","), ","))
		fmt.Fprint(w, `{"items":[{
			"id":"AAAAAAAAAAA",
			"snippet":{"title":"First","publishedAt":"2024-01-02T03:04:05Z","thumbnails":{
				"default":{"url":"https://i.ytimg.com/vi/AAAAAAAAAAA/default.jpg"},
				"high":{"url":"https://i.ytimg.com/vi/AAAAAAAAAAA/hqdefault.jpg"}}},
			"status":{"privacyStatus":"unlisted"},
			"contentDetails":{"duration":"PT1M1S"}}]}`)
	})

	got, err := yt.FetchMetadata(context.Background(), []model.YoutubeVideoID{"AAAAAAAAAAA", "BBBBBBBBBBB"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	md := got["AAAAAAAAAAA"]
	assert.Equal(t, "First", md.Title)
	assert.Equal(t, "unlisted", md.PrivacyStatus)
	assert.Equal(t, "https://i.ytimg.com/vi/AAAAAAAAAAA/hqdefault.jpg", md.Thumbnail)
	assert.Equal(t, "2024-01-02T03:04:05Z", md.PublishedAt)
	assert.Equal(t, "PT1M1S", md.Duration)
}

func TestFetchMetadataRejectsLargeBatch(t *testing.T) {
	yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request")
	})

	ids := make([]model.YoutubeVideoID, MaxBatch+1)
	_, err := yt.FetchMetadata(context.Background(), ids)
	assert.Error(t, err)
}

func TestFetchMetadataError(t *testing.T) {
	yt := newTestYoutube(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := yt.FetchMetadata(context.Background(), []model.YoutubeVideoID{"AAAAAAAAAAA"})
	assert.Error(t, err)
}
