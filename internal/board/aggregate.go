package board

import (
	"sort"

	"github.com/transit-board/pkg/transit/models"
)

// Limits holds per-line display caps. A cap of zero or less means the line
// is not truncated.
type Limits struct {
	Default  int
	BySource map[models.Source]int
	ByLine   map[string]int
}

// DefaultLimits shows three trains per CTA line and five for bus and Metra
func DefaultLimits() Limits {
	return Limits{
		Default: 5,
		BySource: map[models.Source]int{
			models.SourceCTATrain: 3,
			models.SourceCTABus:   5,
			models.SourceMetra:    5,
		},
	}
}

// For resolves the cap for line, preferring a line override over the
// source cap over the default.
func (l Limits) For(line string, src models.Source) int {
	if n, ok := l.ByLine[line]; ok {
		return n
	}
	if n, ok := l.BySource[src]; ok {
		return n
	}
	return l.Default
}

// Aggregate groups arrivals by line, orders each line and truncates it. The
// result does not depend on input order.
func Aggregate(arrivals []models.Arrival, limits Limits) models.Board {
	grouped := make(map[string][]models.Arrival)
	for _, a := range arrivals {
		grouped[a.Line] = append(grouped[a.Line], a)
	}

	for line, group := range grouped {
		sort.SliceStable(group, func(i, j int) bool {
			return less(group[i], group[j])
		})
		if max := limits.For(line, group[0].Source); max > 0 && len(group) > max {
			group = group[:max]
		}
		grouped[line] = group
	}

	return models.Board{Lines: grouped}
}

// less orders by countdown, then destination, then every remaining field so
// that equal countdowns never depend on input order.
func less(a, b models.Arrival) bool {
	if a.MinutesAway != b.MinutesAway {
		return a.MinutesAway < b.MinutesAway
	}
	if a.Destination != b.Destination {
		return a.Destination < b.Destination
	}
	if a.Station != b.Station {
		return a.Station < b.Station
	}
	if a.Run != b.Run {
		return a.Run < b.Run
	}
	if a.IsLive != b.IsLive {
		return a.IsLive
	}
	if a.IsDelayed != b.IsDelayed {
		return !a.IsDelayed
	}
	return a.Source < b.Source
}
