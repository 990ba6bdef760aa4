package model

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

type VideoStatus string

const (
	StatusPublic   VideoStatus = "public"
	StatusUnlisted VideoStatus = "unlisted"
	StatusPrivate  VideoStatus = "private"
	StatusDeleted  VideoStatus = "deleted"
	// StatusChecking is a placeholder for clients that render pending rows.
	// The resolver never returns or stores it.
	StatusChecking VideoStatus = "checking"
)

// Definitive reports whether the status may be persisted in the cache.
func (s VideoStatus) Definitive() bool {
	switch s {
	case StatusPublic, StatusUnlisted, StatusPrivate, StatusDeleted:
		return true
	}
	return false
}

type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentShort ContentType = "short"
)

const (
	TitlePrivate  = "Private Video"
	TitleNotFound = "Video Not Found"
)

type YoutubeVideoID string

var ErrInvalidVideoID = errors.New("invalid video id")

var (
	videoIDRE    = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	videoURLIDRE = regexp.MustCompile(`(?:[?&]v=|/shorts/|/embed/|youtu\.be/)([0-9A-Za-z_-]{11})(?:[^0-9A-Za-z_-]|$)`)
)

// ParseVideoID accepts a bare id or a watch, shorts, embed or youtu.be URL.
func ParseVideoID(input string) (YoutubeVideoID, error) {
	s := strings.TrimSpace(input)
	if videoIDRE.MatchString(s) {
		return YoutubeVideoID(s), nil
	}
	if m := videoURLIDRE.FindStringSubmatch(s); m != nil {
		return YoutubeVideoID(m[1]), nil
	}

	return "", ErrInvalidVideoID
}

type YoutubeChannelID string

type VideoRecord struct {
	ID              YoutubeVideoID `json:"id"`
	Title           string         `json:"title"`
	Status          VideoStatus    `json:"status"`
	ThumbnailURL    string         `json:"thumbnailUrl,omitempty"`
	PublishedAt     *time.Time     `json:"publishedAt,omitempty"`
	ContentType     ContentType    `json:"contentType"`
	DurationSeconds *int           `json:"durationSeconds,omitempty"`
	FromCache       bool           `json:"fromCache"`
}

// CacheEntry is the persisted form of a record. FromCache on Record is
// ignored by the stores.
type CacheEntry struct {
	Record   VideoRecord
	CachedAt time.Time
}

// Fresh reports whether the entry is younger than the cutoff. An entry cached
// exactly at the cutoff is stale.
func (e CacheEntry) Fresh(cutoff time.Time) bool {
	return e.CachedAt.After(cutoff)
}
