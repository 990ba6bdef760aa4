package fetcher

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonasfroeller/tube-visibility-inspector/model"
)

const (
	idChars       = `[0-9A-Za-z_-]`
	idBoundary    = `(?:[^0-9A-Za-z_-]|$)`
	contextWindow = 120
)

// Redundant on purpose: channel pages change shape often and each pattern
// catches a different rendering.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/watch\?(?:[^"'\s<>]*?&(?:amp;)?)?v=(` + idChars + `{11})` + idBoundary),
	regexp.MustCompile(`/embed/(` + idChars + `{11})` + idBoundary),
	regexp.MustCompile(`/shorts/(` + idChars + `{11})` + idBoundary),
	regexp.MustCompile(`youtu\.be/(` + idChars + `{11})` + idBoundary),
	regexp.MustCompile(`"videoId"\s*:\s*"(` + idChars + `{11})"`),
}

var (
	quotedTokenRE = regexp.MustCompile(`"(` + idChars + `{11})"`)
	hrefIDRE      = regexp.MustCompile(`(?:[?&]v=|/shorts/|/embed/|youtu\.be/)(` + idChars + `{11})` + idBoundary)
	bareIDRE      = regexp.MustCompile(`^` + idChars + `{11}$`)
)

var contextKeywords = []string{"video", "watch", "short", "thumbnail", "playlist"}

var continuationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"continuationCommand"\s*:\s*\{\s*"token"\s*:\s*"([0-9A-Za-z_%=-]{20,})"`),
	regexp.MustCompile(`"continuation"\s*:\s*"([0-9A-Za-z_%=-]{20,})"`),
	regexp.MustCompile(`"token"\s*:\s*"(4qmFsg[0-9A-Za-z_%=-]+)"`),
	regexp.MustCompile(`[?&]continuation=([0-9A-Za-z_%=-]{20,})`),
}

// Extractor pulls video ids and continuation tokens out of YouTube HTML
// pages and innertube JSON responses.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractVideoIDs returns every id found in doc, deduplicated and ordered by
// first occurrence.
func (e *Extractor) ExtractVideoIDs(doc string) []model.YoutubeVideoID {
	found := map[string]bool{}
	for _, re := range videoIDPatterns {
		for _, m := range re.FindAllStringSubmatch(doc, -1) {
			found[m[1]] = true
		}
	}
	for _, id := range domVideoIDs(doc) {
		found[id] = true
	}
	for _, id := range contextualTokens(doc) {
		found[id] = true
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	pos := make(map[string]int, len(ids))
	for _, id := range ids {
		pos[id] = strings.Index(doc, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if pos[ids[i]] != pos[ids[j]] {
			return pos[ids[i]] < pos[ids[j]]
		}
		return ids[i] < ids[j]
	})

	result := make([]model.YoutubeVideoID, len(ids))
	for i, id := range ids {
		result[i] = model.YoutubeVideoID(id)
	}

	return result
}

// ExtractContinuationToken returns the longest token any pattern finds, the
// first one on ties, or "" when there is none.
func (e *Extractor) ExtractContinuationToken(doc string) string {
	best := ""
	for _, re := range continuationPatterns {
		for _, m := range re.FindAllStringSubmatch(doc, -1) {
			if len(m[1]) > len(best) {
				best = m[1]
			}
		}
	}

	return best
}

func domVideoIDs(doc string) []string {
	if !strings.Contains(doc, "<") {
		return nil
	}
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil
	}

	var ids []string
	dom.Find("a[href], link[rel=canonical]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if m := hrefIDRE.FindStringSubmatch(href); m != nil {
			ids = append(ids, m[1])
		}
	})
	dom.Find(`meta[itemprop="videoId"], meta[itemprop="identifier"]`).Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		if bareIDRE.MatchString(content) {
			ids = append(ids, content)
		}
	})

	return ids
}

// contextualTokens accepts quoted 11 character strings only when a video
// related keyword shows up shortly before them. JSON keys and all lowercase
// words are rejected.
func contextualTokens(doc string) []string {
	var ids []string
	for _, loc := range quotedTokenRE.FindAllStringSubmatchIndex(doc, -1) {
		token := doc[loc[2]:loc[3]]
		if token == strings.ToLower(token) {
			continue
		}
		if strings.HasPrefix(strings.TrimLeft(doc[loc[1]:], " \t\n"), ":") {
			continue
		}
		start := max(loc[0]-contextWindow, 0)
		for start > 0 && !utf8.RuneStart(doc[start]) {
			start--
		}
		window := strings.ToLower(doc[start:loc[0]])
		for _, kw := range contextKeywords {
			if strings.Contains(window, kw) {
				ids = append(ids, token)
				break
			}
		}
	}

	return ids
}
