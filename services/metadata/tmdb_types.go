package metadata

// Response shapes for the TMDB endpoints the catalog consumes. Only the
// fields the importer reads are declared.

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ProductionCountry struct {
	ISO31661 string `json:"iso_3166_1"`
	Name     string `json:"name"`
}

type Movie struct {
	ID                  int64               `json:"id"`
	Title               string              `json:"title"`
	Overview            string              `json:"overview"`
	ReleaseDate         string              `json:"release_date"`
	Runtime             *int                `json:"runtime"`
	PosterPath          string              `json:"poster_path"`
	BackdropPath        string              `json:"backdrop_path"`
	VoteAverage         float64             `json:"vote_average"`
	Genres              []Genre             `json:"genres"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	ReleaseDates        ReleaseDates        `json:"release_dates"`
}

type ReleaseDates struct {
	Results []ReleaseCountry `json:"results"`
}

type ReleaseCountry struct {
	ISO31661     string         `json:"iso_3166_1"`
	ReleaseDates []ReleaseEntry `json:"release_dates"`
}

type ReleaseEntry struct {
	Certification string `json:"certification"`
	ReleaseDate   string `json:"release_date"`
	Type          int    `json:"type"`
}

type Series struct {
	ID                  int64               `json:"id"`
	Name                string              `json:"name"`
	Overview            string              `json:"overview"`
	FirstAirDate        string              `json:"first_air_date"`
	EpisodeRunTime      []int               `json:"episode_run_time"`
	PosterPath          string              `json:"poster_path"`
	BackdropPath        string              `json:"backdrop_path"`
	VoteAverage         float64             `json:"vote_average"`
	Genres              []Genre             `json:"genres"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	Seasons             []SeasonSummary     `json:"seasons"`
	ContentRatings      ContentRatings      `json:"content_ratings"`
}

type SeasonSummary struct {
	ID           int64  `json:"id"`
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episode_count"`
	PosterPath   string `json:"poster_path"`
}

type ContentRatings struct {
	Results []ContentRating `json:"results"`
}

type ContentRating struct {
	ISO31661 string `json:"iso_3166_1"`
	Rating   string `json:"rating"`
}

// SeasonDetails is the /tv/{id}/season/{n} document.
type SeasonDetails struct {
	ID           int64            `json:"id"`
	SeasonNumber int              `json:"season_number"`
	Name         string           `json:"name"`
	PosterPath   string           `json:"poster_path"`
	Episodes     []EpisodeDetails `json:"episodes"`
}

type EpisodeDetails struct {
	ID            int64  `json:"id"`
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	Runtime       *int   `json:"runtime"`
	StillPath     string `json:"still_path"`
}

// SearchResult is one item of a search or discover page. Movies carry Title
// and ReleaseDate, series carry Name and FirstAirDate.
type SearchResult struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type,omitempty"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	VoteAverage  float64 `json:"vote_average"`
}

// DisplayTitle returns the title for movies and the name for series.
func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Date returns the release date for movies and the first air date for series.
func (r SearchResult) Date() string {
	if r.ReleaseDate != "" {
		return r.ReleaseDate
	}
	return r.FirstAirDate
}

type ResultPage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []SearchResult `json:"results"`
}
