package resolver

import (
	"testing"

	"github.com/jonasfroeller/tube-visibility-inspector/model"
	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	records := map[model.YoutubeVideoID]model.VideoRecord{
		vidA: {ID: vidA, Status: model.StatusPublic, FromCache: true},
		vidB: {ID: vidB, Status: model.StatusDeleted},
		vidC: {ID: vidC, Status: model.StatusPrivate},
		vidD: {ID: vidD, Status: model.StatusUnlisted, FromCache: true},
	}

	got := Aggregate(ids(vidC, vidA, "XXXXXXXXXXX", vidB), ids(vidD, vidA), records)

	var order []model.YoutubeVideoID
	for _, r := range got {
		order = append(order, r.ID)
	}
	assert.Equal(t, ids(vidC, vidA, vidB, vidD), order)
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil, nil, map[model.YoutubeVideoID]model.VideoRecord{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
