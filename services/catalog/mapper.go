package catalog

import (
	"fmt"
	"strings"

	"cinemax/models"
	"cinemax/services/metadata"
)

const ImageBaseURL = "https://image.tmdb.org/t/p/w500"

// MapMovie converts a TMDB movie document into an entry draft with one
// entry-level server per provider.
func MapMovie(m *metadata.Movie, providers []Provider) *models.EntryDraft {
	poster := imageURL(m.PosterPath)
	thumbnail := imageURL(m.BackdropPath)
	if thumbnail == "" {
		thumbnail = poster
	}

	draft := &models.EntryDraft{
		Category:    models.CategoryMovies,
		Subcategory: firstGenre(m.Genres),
		Entry: models.Entry{
			Title:          m.Title,
			Description:    m.Overview,
			Poster:         poster,
			Thumbnail:      thumbnail,
			Country:        firstCountry(m.ProductionCountries),
			Rating:         m.VoteAverage,
			Duration:       FormatRuntime(m.Runtime),
			Year:           yearOf(m.ReleaseDate),
			ParentalRating: movieCertification(m),
		},
	}
	for _, p := range providers {
		draft.Servers = append(draft.Servers, models.ServerDraft{Name: p.Name, URL: p.MovieURL(m.ID)})
	}
	return draft
}

// MapSeries converts a TMDB series document and its fetched season documents
// into an entry draft. Season 0 is dropped.
func MapSeries(s *metadata.Series, seasons []*metadata.SeasonDetails, providers []Provider) *models.EntryDraft {
	poster := imageURL(s.PosterPath)
	thumbnail := imageURL(s.BackdropPath)
	if thumbnail == "" {
		thumbnail = poster
	}

	duration := ""
	if len(s.EpisodeRunTime) > 0 && s.EpisodeRunTime[0] > 0 {
		duration = fmt.Sprintf("%dm", s.EpisodeRunTime[0])
	}

	draft := &models.EntryDraft{
		Category:    models.CategorySeries,
		Subcategory: firstGenre(s.Genres),
		Entry: models.Entry{
			Title:          s.Name,
			Description:    s.Overview,
			Poster:         poster,
			Thumbnail:      thumbnail,
			Country:        firstCountry(s.ProductionCountries),
			Rating:         s.VoteAverage,
			Duration:       duration,
			Year:           yearOf(s.FirstAirDate),
			ParentalRating: seriesContentRating(s),
		},
	}

	for _, season := range seasons {
		if season == nil || season.SeasonNumber == 0 {
			continue
		}
		seasonPoster := imageURL(season.PosterPath)
		if seasonPoster == "" {
			seasonPoster = poster
		}

		sd := models.SeasonDraft{Number: season.SeasonNumber, Poster: seasonPoster}
		for _, ep := range season.Episodes {
			still := imageURL(ep.StillPath)
			if still == "" {
				still = thumbnail
			}
			ed := models.EpisodeDraft{
				Number:      ep.EpisodeNumber,
				Title:       ep.Name,
				Duration:    episodeRuntime(ep.Runtime),
				Description: ep.Overview,
				Thumbnail:   still,
			}
			for _, p := range providers {
				ed.Servers = append(ed.Servers, models.ServerDraft{
					Name: p.Name,
					URL:  p.EpisodeURL(s.ID, season.SeasonNumber, ep.EpisodeNumber),
				})
			}
			sd.Episodes = append(sd.Episodes, ed)
		}
		draft.Seasons = append(draft.Seasons, sd)
	}
	return draft
}

// FormatRuntime renders minutes as "2h 5m"; nil or zero yields "".
func FormatRuntime(minutes *int) string {
	if minutes == nil || *minutes <= 0 {
		return ""
	}
	return fmt.Sprintf("%dh %dm", *minutes/60, *minutes%60)
}

func episodeRuntime(minutes *int) string {
	if minutes == nil || *minutes <= 0 {
		return ""
	}
	return fmt.Sprintf("%dm", *minutes)
}

func imageURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return ImageBaseURL + path
}

// yearOf returns the first four characters of a TMDB date.
func yearOf(date string) string {
	date = strings.TrimSpace(date)
	if len(date) > 4 {
		return date[:4]
	}
	return date
}

func firstGenre(genres []metadata.Genre) string {
	if len(genres) == 0 {
		return ""
	}
	return genres[0].Name
}

func firstCountry(countries []metadata.ProductionCountry) string {
	if len(countries) == 0 {
		return ""
	}
	return countries[0].Name
}

func movieCertification(m *metadata.Movie) string {
	for _, rc := range m.ReleaseDates.Results {
		if rc.ISO31661 != "US" {
			continue
		}
		if len(rc.ReleaseDates) > 0 {
			return strings.TrimSpace(rc.ReleaseDates[0].Certification)
		}
		return ""
	}
	return ""
}

func seriesContentRating(s *metadata.Series) string {
	for _, r := range s.ContentRatings.Results {
		if r.ISO31661 == "US" {
			return strings.TrimSpace(r.Rating)
		}
	}
	return ""
}

// seriesKey returns the de-duplication key of a series without mapping seasons.
func seriesKey(s *metadata.Series) (title, year string) {
	return s.Name, yearOf(s.FirstAirDate)
}
