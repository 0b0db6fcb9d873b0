package models

// Category names seeded by the initial migration.
const (
	CategoryMovies     = "Movies"
	CategorySeries     = "TV Series"
	CategoryLiveTV     = "Live TV"
	DefaultSubcategory = "General"
)

// Row-level structures mirroring the catalog tables.

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Subcategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Entry struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Poster         string  `json:"poster"`
	Thumbnail      string  `json:"thumbnail"`
	CategoryID     int64   `json:"categoryId"`
	SubcategoryID  *int64  `json:"subcategoryId,omitempty"`
	Subcategory    string  `json:"subcategory,omitempty"` // joined name, read path only
	Country        string  `json:"country"`
	Rating         float64 `json:"rating"`
	Duration       string  `json:"duration"`
	Year           string  `json:"year"` // stored as text; may be empty
	ParentalRating string  `json:"parentalRating"`
}

type Season struct {
	ID           int64  `json:"id"`
	EntryID      int64  `json:"entryId"`
	SeasonNumber int    `json:"seasonNumber"`
	Poster       string `json:"poster,omitempty"`
}

type Episode struct {
	ID            int64  `json:"id"`
	SeasonID      int64  `json:"seasonId"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	Duration      string `json:"duration"`
	Description   string `json:"description"`
	Thumbnail     string `json:"thumbnail"`
}

// Server is a playback source. Exactly one of EntryID and EpisodeID is set.
type Server struct {
	ID         int64  `json:"id"`
	EntryID    *int64 `json:"entryId,omitempty"`
	EpisodeID  *int64 `json:"episodeId,omitempty"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	IsDRM      bool   `json:"isDrm"`
	LicenseURL string `json:"licenseUrl,omitempty"`
}

// EntryDraft is everything written for one entry in a single transaction.
type EntryDraft struct {
	Category    string
	Subcategory string
	Entry       Entry
	Servers     []ServerDraft // entry-level (movies, live TV)
	Seasons     []SeasonDraft // series only
}

type SeasonDraft struct {
	Number   int
	Poster   string
	Episodes []EpisodeDraft
}

type EpisodeDraft struct {
	Number      int
	Title       string
	Duration    string
	Description string
	Thumbnail   string
	Servers     []ServerDraft
}

type ServerDraft struct {
	Name       string
	URL        string
	IsDRM      bool
	LicenseURL string
}

// EpisodeCount returns the number of episodes across all seasons of the draft.
func (d *EntryDraft) EpisodeCount() int {
	n := 0
	for _, s := range d.Seasons {
		n += len(s.Episodes)
	}
	return n
}
