package matchmaker

import (
	"sort"

	"github.com/vovakirdan/arena-coordinator/internal/store"
)

// SortByRank orders players by descending rank. Ties keep their input order.
func SortByRank(players []*store.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Rank > players[j].Rank
	})
}

// GroupByRank splits rank-sorted players into groups anchored on their first
// member: a player joins the current group while its rank is within
// maxRankDifference of the anchor, otherwise it opens a new group.
// Groups of a single player are left out. Each group appears once.
func GroupByRank(players []*store.Player, maxRankDifference int) [][]*store.Player {
	var (
		groups  [][]*store.Player
		current []*store.Player
	)
	flush := func() {
		if len(current) > 1 {
			groups = append(groups, current)
		}
	}

	for _, p := range players {
		if len(current) == 0 || abs(p.Rank-current[0].Rank) > maxRankDifference {
			flush()
			current = []*store.Player{p}
			continue
		}
		current = append(current, p)
	}
	flush()

	return groups
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
