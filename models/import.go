package models

// ImportStatus is the outcome reported for a single import or manual add.
type ImportStatus string

const (
	ImportSuccess ImportStatus = "success"
	ImportWarning ImportStatus = "warning" // duplicate, nothing written
	ImportError   ImportStatus = "error"
)

// ImportResult is the structured outcome of an import-path operation.
// Errors never escape the operation boundary; they are reported here.
type ImportResult struct {
	Status  ImportStatus `json:"status"`
	Message string       `json:"message"`
	EntryID int64        `json:"entryId,omitempty"`
}

func (r ImportResult) OK() bool { return r.Status == ImportSuccess }

// ManualEntry is the add_manual payload from the dashboard form.
type ManualEntry struct {
	Title       string         `json:"title"`
	Type        string         `json:"type"` // movie | series | live
	Category    string         `json:"category"`
	Image       string         `json:"image"`
	Year        FlexString     `json:"year"`
	Rating      FlexFloat      `json:"rating"`
	Duration    string         `json:"duration"`
	Description string         `json:"description"`
	SourceURL   string         `json:"source_url"`
	IsDRM       bool           `json:"is_drm"`
	LicenseURL  string         `json:"license_url"`
	Seasons     []ManualSeason `json:"seasons"`
}

type ManualSeason struct {
	SeasonNumber int             `json:"season_number"`
	Episodes     []ManualEpisode `json:"episodes"`
}

type ManualEpisode struct {
	EpisodeNumber int    `json:"episode_number"`
	Title         string `json:"title"`
	URL           string `json:"url"`
}
