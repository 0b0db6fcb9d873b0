package catalog

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"cinemax/services/metadata"
)

// rankResults drops results that cannot be imported and orders the rest by
// how closely their title matches the query. Ties keep TMDB's popularity order.
func rankResults(query string, results []metadata.SearchResult) []metadata.SearchResult {
	// Movie and TV ids overlap, so scores travel with their result.
	type scored struct {
		result metadata.SearchResult
		score  float64
	}
	ranked := make([]scored, 0, len(results))
	for _, r := range results {
		if r.MediaType == "" || r.MediaType == metadata.MediaMovie || r.MediaType == metadata.MediaTV {
			ranked = append(ranked, scored{result: r, score: titleSimilarity(query, r.DisplayTitle())})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	out := make([]metadata.SearchResult, len(ranked))
	for i, r := range ranked {
		out[i] = r.result
	}
	return out
}

// titleSimilarity scores two titles between 0 and 1. A query that is the
// leading words of the title scores at least 0.9.
func titleSimilarity(a, b string) float64 {
	a, b = normalizeTitle(a), normalizeTitle(b)
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.HasPrefix(longer, shorter+" ") {
		return 0.9 + 0.1*float64(len(shorter))/float64(len(longer))
	}

	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1 - float64(editDistance(ra, rb))/float64(longest)
}

// normalizeTitle folds accents, lowercases, maps & to "and" and keeps
// letters and digits separated by single spaces.
func normalizeTitle(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}
	s = strings.ReplaceAll(strings.ToLower(s), "&", " and ")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_' || r == ':':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// editDistance is the Levenshtein distance using two rolling rows.
func editDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
