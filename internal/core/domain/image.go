package domain

// ImageSummary represents one row of the image listing.
type ImageSummary struct {
	ID       string   `json:"id"`
	RepoTags []string `json:"repoTags"`
	Size     int64    `json:"size"`
}

// ImageDetails is the normalized result of inspecting a single image.
type ImageDetails struct {
	ID       string   `json:"id"`
	ParentID string   `json:"parentId"` // empty when the image has no parent
	RepoTags []string `json:"repoTags"`
	Created  *string  `json:"created"`
	Size     int64    `json:"size"`
	Author   *string  `json:"author"`
}

// ProgressDetail carries byte counters for phases that report them.
type ProgressDetail struct {
	Current int64 `json:"current"`
	Total   int64 `json:"total"`
}

// PullProgressEvent is one decoded frame of a pull or build stream.
type PullProgressEvent struct {
	Status         string          `json:"status"`
	ID             *string         `json:"id,omitempty"`
	ProgressDetail *ProgressDetail `json:"progressDetail,omitempty"`
	Stream         *string         `json:"stream,omitempty"`
}

// PruneReport summarizes an image prune.
type PruneReport struct {
	Deleted        []string `json:"deleted"`
	SpaceReclaimed uint64   `json:"spaceReclaimed"`
}
