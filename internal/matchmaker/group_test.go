package matchmaker

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/arena-coordinator/internal/store"
)

func ranked(ranks ...int) []*store.Player {
	out := make([]*store.Player, 0, len(ranks))
	for i, r := range ranks {
		out = append(out, &store.Player{ID: fmt.Sprintf("p%d", i), Rank: r})
	}
	SortByRank(out)
	return out
}

func ids(group []*store.Player) []string {
	out := make([]string, 0, len(group))
	for _, p := range group {
		out = append(out, p.ID)
	}
	return out
}

func TestGroupByRank(t *testing.T) {
	tests := []struct {
		name   string
		ranks  []int
		groups [][]string
	}{
		{name: "empty"},
		{name: "single", ranks: []int{1500}},
		{name: "pair within range", ranks: []int{1000, 1100}, groups: [][]string{{"p1", "p0"}}},
		{name: "outlier left alone", ranks: []int{1000, 1100, 3000}, groups: [][]string{{"p1", "p0"}}},
		{name: "three in range emitted once", ranks: []int{1500, 1400, 1300}, groups: [][]string{{"p0", "p1", "p2"}}},
		{name: "anchor not chained", ranks: []int{2000, 1600, 1200, 1100}, groups: [][]string{{"p0", "p1"}, {"p2", "p3"}}},
		{name: "boundary inclusive", ranks: []int{2000, 1500}, groups: [][]string{{"p0", "p1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GroupByRank(ranked(tt.ranks...), 500)
			require.Len(t, got, len(tt.groups))
			for i, g := range got {
				assert.Equal(t, tt.groups[i], ids(g))
			}
		})
	}
}

func TestGroupByRankAnchorProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 200; round++ {
		n := rng.IntN(30)
		ranks := make([]int, n)
		for i := range ranks {
			ranks[i] = rng.IntN(4000)
		}
		maxDiff := rng.IntN(800)

		players := ranked(ranks...)
		seen := map[string]bool{}
		for _, group := range GroupByRank(players, maxDiff) {
			require.GreaterOrEqual(t, len(group), 2)
			anchor := group[0].Rank
			for _, p := range group {
				assert.LessOrEqual(t, abs(p.Rank-anchor), maxDiff)
				assert.False(t, seen[p.ID], "player %s grouped twice", p.ID)
				seen[p.ID] = true
			}
		}
	}
}
