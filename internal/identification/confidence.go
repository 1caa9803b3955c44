package identification

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"reelsync/internal/identification/tmdb"
	"reelsync/internal/logging"
)

// Tier base scores. The popularity bonus is capped below the gap between
// tiers so ordering across tiers is strict.
const (
	scoreExactYearLanguage = 4000
	scoreExactYear         = 3000
	scoreExactLanguage     = 2000
	scoreExact             = 1000
	maxPopularityBonus     = 99
)

type scoredResult struct {
	result tmdb.Result
	score  int
	tier   string
}

// matchQuery captures what a candidate is compared against.
type matchQuery struct {
	key      string
	year     int
	language string
}

func newMatchQuery(title string, year int, language string) matchQuery {
	return matchQuery{
		key:      comparisonKey(title),
		year:     year,
		language: strings.ToLower(strings.TrimSpace(language)),
	}
}

func (q matchQuery) exactTitle(result tmdb.Result) bool {
	if q.key == "" {
		return false
	}
	return comparisonKey(result.Title) == q.key || comparisonKey(result.OriginalTitle) == q.key
}

// scoreResult ranks a single candidate. Zero means no exact title match.
func scoreResult(q matchQuery, result tmdb.Result) (int, string) {
	if !q.exactTitle(result) {
		return 0, "none"
	}
	yearMatch := q.year > 0 && result.Year() == q.year
	languageMatch := q.language != "" && strings.EqualFold(result.OriginalLanguage, q.language)

	base, tier := scoreExact, "exact"
	switch {
	case yearMatch && languageMatch:
		base, tier = scoreExactYearLanguage, "exact_year_language"
	case yearMatch:
		base, tier = scoreExactYear, "exact_year"
	case languageMatch:
		base, tier = scoreExactLanguage, "exact_language"
	}
	return base + popularityBonus(result.Popularity), tier
}

func popularityBonus(popularity float64) int {
	if math.IsNaN(popularity) || popularity < 0 {
		popularity = 0
	}
	return 1 + int(math.Min(popularity, maxPopularityBonus-1))
}

// rankResults scores candidates and returns the exact-title ones ordered by
// score descending. Equal scores keep provider order.
func rankResults(logger *slog.Logger, q matchQuery, results []tmdb.Result) []scoredResult {
	ranked := make([]scoredResult, 0, len(results))
	for _, result := range results {
		score, tier := scoreResult(q, result)
		logger.Debug("candidate scored",
			logging.Int64("tmdb_id", result.ID),
			logging.String("candidate_title", result.Title),
			logging.String("original_title", result.OriginalTitle),
			logging.Int("candidate_year", result.Year()),
			logging.String("original_language", result.OriginalLanguage),
			logging.Float64("popularity", result.Popularity),
			logging.Int("score", score),
			logging.String("tier", tier),
		)
		if score == 0 {
			continue
		}
		ranked = append(ranked, scoredResult{result: result, score: score, tier: tier})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

// mergeResults concatenates result sets, keeping the first occurrence of
// each TMDB id.
func mergeResults(sets ...[]tmdb.Result) []tmdb.Result {
	seen := make(map[int64]struct{})
	var merged []tmdb.Result
	for _, set := range sets {
		for _, result := range set {
			if result.ID <= 0 {
				continue
			}
			if _, ok := seen[result.ID]; ok {
				continue
			}
			seen[result.ID] = struct{}{}
			merged = append(merged, result)
		}
	}
	return merged
}
