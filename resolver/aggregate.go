package resolver

import "github.com/jonasfroeller/tube-visibility-inspector/model"

// Aggregate orders records by the explicit ids first, in input order, then
// by the discovered ids in discovery order. Each id appears once and ids
// without a record are dropped.
func Aggregate(explicit, discovered []model.YoutubeVideoID, records map[model.YoutubeVideoID]model.VideoRecord) []model.VideoRecord {
	results := make([]model.VideoRecord, 0, len(records))
	emitted := make(map[model.YoutubeVideoID]bool, len(records))
	for _, ids := range [][]model.YoutubeVideoID{explicit, discovered} {
		for _, id := range ids {
			if emitted[id] {
				continue
			}
			rec, ok := records[id]
			if !ok {
				continue
			}
			emitted[id] = true
			results = append(results, rec)
		}
	}

	return results
}
