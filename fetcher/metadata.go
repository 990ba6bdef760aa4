package fetcher

// MaxBatch is the largest id list the Data API accepts in one videos call.
const MaxBatch = 50

// Metadata is the subset of a videos.list item the resolver needs.
type Metadata struct {
	Title         string
	PrivacyStatus string
	Thumbnail     string
	PublishedAt   string
	Duration      string
}
