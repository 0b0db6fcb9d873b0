package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// Provider builds deterministic embed URLs from a TMDB id.
type Provider struct {
	Name            string
	MovieTemplate   string
	EpisodeTemplate string
}

var (
	VidSrc = Provider{
		Name:            "VidSrc",
		MovieTemplate:   "https://vidsrc.net/embed/movie/{id}",
		EpisodeTemplate: "https://vidsrc.net/embed/tv/{id}/{season}/{episode}",
	}
	VidJoy = Provider{
		Name:            "VidJoy",
		MovieTemplate:   "https://vidjoy.pro/embed/movie/{id}",
		EpisodeTemplate: "https://vidjoy.pro/embed/tv/{id}/{season}/{episode}",
	}
	MultiEmbed = Provider{
		Name:            "MultiEmbed",
		MovieTemplate:   "https://multiembed.mov/directstream.php?video_id={id}&tmdb=1",
		EpisodeTemplate: "https://multiembed.mov/directstream.php?video_id={id}&tmdb=1&s={season}&e={episode}",
	}
)

// DefaultProviders are attached to every TMDB import.
var DefaultProviders = []Provider{VidSrc, VidJoy}

var knownProviders = []Provider{VidSrc, VidJoy, MultiEmbed}

func (p Provider) MovieURL(tmdbID int64) string {
	return strings.NewReplacer("{id}", strconv.FormatInt(tmdbID, 10)).Replace(p.MovieTemplate)
}

func (p Provider) EpisodeURL(tmdbID int64, season, episode int) string {
	return strings.NewReplacer(
		"{id}", strconv.FormatInt(tmdbID, 10),
		"{season}", strconv.Itoa(season),
		"{episode}", strconv.Itoa(episode),
	).Replace(p.EpisodeTemplate)
}

// ProviderByName looks up a known provider, ignoring case.
func ProviderByName(name string) (Provider, bool) {
	name = strings.TrimSpace(name)
	for _, p := range knownProviders {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Provider{}, false
}

// ResolveProviders maps names to providers, returning the names it did not recognise.
func ResolveProviders(names []string) (providers []Provider, unknown []string) {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		p, ok := ProviderByName(name)
		if !ok {
			if strings.TrimSpace(name) != "" {
				unknown = append(unknown, name)
			}
			continue
		}
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		providers = append(providers, p)
	}
	return providers, unknown
}

var embedIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`vidsrc\.(?:net|pro)/embed/(?:movie|tv)/(\d+)`),
	regexp.MustCompile(`vidjoy\.pro/embed/(?:movie|tv)/(\d+)`),
	regexp.MustCompile(`multiembed\.mov/directstream\.php\?(?:.*&)?video_id=(\d+)`),
}

// ExtractTMDBID recovers the TMDB id from a known embed URL.
func ExtractTMDBID(rawURL string) (int64, bool) {
	for _, re := range embedIDPatterns {
		m := re.FindStringSubmatch(rawURL)
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		return id, true
	}
	return 0, false
}
