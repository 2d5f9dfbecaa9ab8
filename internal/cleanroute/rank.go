package cleanroute

import (
	"slices"

	"github.com/airwatchuk/airwatch/internal/exposure"
)

// DefaultMaxAlternatives is how many routes a result carries when unset.
const DefaultMaxAlternatives = 3

// Rank orders routes by ascending health score and keeps at most limit of them.
// Routes with equal scores keep their provider order. limit <= 0 uses
// DefaultMaxAlternatives. The input slice is not modified.
func Rank(routes []exposure.EnrichedRoute, limit int) []exposure.EnrichedRoute {
	ranked := slices.Clone(routes)
	slices.SortStableFunc(ranked, func(a, b exposure.EnrichedRoute) int {
		return a.HealthScore - b.HealthScore
	})
	return truncate(ranked, limit)
}

func truncate(routes []exposure.EnrichedRoute, limit int) []exposure.EnrichedRoute {
	if limit <= 0 {
		limit = DefaultMaxAlternatives
	}
	if len(routes) > limit {
		routes = routes[:limit]
	}
	return routes
}
