package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"golang.org/x/exp/slog"
)

const (
	DefaultBaseURL = "https://www.youtube.com"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	mobileUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"
	webClientVersion = "2.20250222.10.00"
	maxBodySize      = 8 << 20
)

// Innertube clients usable for browse requests.
var (
	ClientWeb       = InnertubeClient{Name: "WEB", ID: "1", Version: webClientVersion, UserAgent: browserUserAgent}
	ClientMobileWeb = InnertubeClient{Name: "MWEB", ID: "2", Version: webClientVersion, UserAgent: mobileUserAgent}
)

// unavailablePhrases mark a watch page of a removed or never existing video.
var unavailablePhrases = []string{
	"video unavailable",
	"this video isn't available anymore",
	"this video is no longer available",
	"this video has been removed",
	"this video does not exist",
	"account associated with this video has been terminated",
}

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

type InnertubeClient struct {
	Name      string
	ID        string
	Version   string
	UserAgent string
}

type BrowseRequest struct {
	Continuation string
	Client       InnertubeClient
}

// Scraper reads public YouTube pages directly, without the Data API.
type Scraper struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

func NewScraper(client *http.Client, baseURL string, logger *slog.Logger) *Scraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Scraper{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (s *Scraper) BaseURL() string {
	return s.baseURL
}

// FetchHTML GETs url with browser headers. YouTube serves a consent wall or
// a stripped page to clients that do not look like a browser.
func (s *Scraper) FetchHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cookie", "CONSENT=YES+1; SOCS=CAI")

	return s.do(req)
}

// Browse posts a continuation token to the innertube browse endpoint and
// returns the raw JSON response.
func (s *Scraper) Browse(ctx context.Context, br BrowseRequest) (string, error) {
	payload := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    br.Client.Name,
				"clientVersion": br.Client.Version,
				"hl":            "en",
				"gl":            "US",
			},
		},
		"continuation": br.Continuation,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/youtubei/v1/browse?prettyPrint=false", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", br.Client.UserAgent)
	req.Header.Set("X-Youtube-Client-Name", br.Client.ID)
	req.Header.Set("X-Youtube-Client-Version", br.Client.Version)
	req.Header.Set("Origin", s.baseURL)

	return s.do(req)
}

func (s *Scraper) do(req *http.Request) (string, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", req.URL, err)
	}

	return string(body), nil
}

func (s *Scraper) WatchURL(id model.YoutubeVideoID) string {
	return s.baseURL + "/watch?v=" + string(id)
}

// ClassifyMissingVideo decides between private and deleted for a video the
// Data API did not return. Anything undecidable counts as deleted.
func (s *Scraper) ClassifyMissingVideo(ctx context.Context, id model.YoutubeVideoID) model.VideoStatus {
	body, err := s.FetchHTML(ctx, s.WatchURL(id))
	if err != nil {
		s.logger.Debug("watch page fetch failed, assuming deleted", slog.String("id", string(id)), slog.String("err", err.Error()))
		return model.StatusDeleted
	}

	return ClassifyWatchPage(body)
}

// ClassifyWatchPage applies the keyword rules to a watch page body.
func ClassifyWatchPage(body string) model.VideoStatus {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "private") {
		return model.StatusPrivate
	}
	for _, phrase := range unavailablePhrases {
		if strings.Contains(lower, phrase) {
			return model.StatusDeleted
		}
	}

	return model.StatusDeleted
}
