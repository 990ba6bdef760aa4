package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// ShortMaxSeconds is the longest duration still classified as a short.
const ShortMaxSeconds = 61

var isoDurationRE = regexp.MustCompile(`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseDuration converts an ISO 8601 duration as returned by the Data API
// (e.g. "PT1M2S", "P1DT2H") into whole seconds.
func ParseDuration(iso string) (int, error) {
	m := isoDurationRE.FindStringSubmatch(iso)
	if m == nil || iso == "P" || iso == "PT" {
		return 0, fmt.Errorf("invalid duration %q", iso)
	}

	units := []int{7 * 24 * 3600, 24 * 3600, 3600, 60}
	total := 0
	for i, mult := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", iso, err)
		}
		total += n * mult
	}
	if m[5] != "" {
		secs, err := strconv.ParseFloat(m[5], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", iso, err)
		}
		total += int(secs)
	}

	return total, nil
}

// ClassifyDuration returns ContentShort for durations up to ShortMaxSeconds.
func ClassifyDuration(seconds int) ContentType {
	if seconds <= ShortMaxSeconds {
		return ContentShort
	}
	return ContentVideo
}
