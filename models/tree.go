package models

// Nested catalog view returned by get_all_data and accepted by import_data.
// Field names follow the playlist JSON consumed by the player apps.

type Catalog struct {
	Categories []CatalogCategory `json:"Categories"`
}

type CatalogCategory struct {
	MainCategory  string         `json:"MainCategory"`
	SubCategories []string       `json:"SubCategories"`
	Entries       []CatalogEntry `json:"Entries"`
}

type CatalogEntry struct {
	Title          string          `json:"Title"`
	SubCategory    string          `json:"SubCategory"`
	Country        string          `json:"Country"`
	Description    string          `json:"Description"`
	Poster         string          `json:"Poster"`
	Thumbnail      string          `json:"Thumbnail"`
	Rating         float64         `json:"Rating"`
	Duration       string          `json:"Duration"`
	Year           int             `json:"Year"`
	ParentalRating string          `json:"parentalRating"`
	Servers        []CatalogServer `json:"Servers"`
	Seasons        []CatalogSeason `json:"Seasons,omitempty"`
}

type CatalogSeason struct {
	Season       int              `json:"Season"`
	SeasonPoster string           `json:"SeasonPoster"`
	Episodes     []CatalogEpisode `json:"Episodes"`
}

type CatalogEpisode struct {
	Episode     int             `json:"Episode"`
	Title       string          `json:"Title"`
	Duration    string          `json:"Duration"`
	Description string          `json:"Description"`
	Thumbnail   string          `json:"Thumbnail"`
	Servers     []CatalogServer `json:"Servers"`
}

type CatalogServer struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	DRM        bool   `json:"drm,omitempty"`
	LicenseURL string `json:"license,omitempty"`
}

// EntryCount returns the number of entries across all categories.
func (c *Catalog) EntryCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Entries)
	}
	return n
}
