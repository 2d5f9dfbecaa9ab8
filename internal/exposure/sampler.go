// Package exposure samples route geometry, queries air quality along it and
// scores each route for health impact.
package exposure

import "github.com/airwatchuk/airwatch/pkg/geo"

// DefaultSampleTarget bounds the number of air quality queries per route.
const DefaultSampleTarget = 5

// Sample picks at most target points from path at a fixed stride of
// floor(len/target), starting with the first point. Paths no longer than
// target are returned whole.
func Sample(path []geo.Coordinate, target int) []geo.Coordinate {
	if target <= 0 {
		target = DefaultSampleTarget
	}

	n := len(path)
	if n <= target {
		out := make([]geo.Coordinate, n)
		copy(out, path)
		return out
	}

	stride := n / target
	out := make([]geo.Coordinate, 0, target)
	for i := 0; i < n && len(out) < target; i += stride {
		out = append(out, path[i])
	}
	return out
}
