package engine

import (
	"testing"

	"github.com/EGYCODE123/nester-pipeline-git/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTubePlanBasic(t *testing.T) {
	cfg := model.DefaultConfig()
	items := []model.TubeItemInput{
		{Width: 2500, Qty: 4},
		{Width: 1000, Qty: 2},
	}

	plan, err := ComputeTubePlan(items, cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Tubes)
	assert.Empty(t, plan.InfeasiblePieces)
	for _, c := range plan.Tubes {
		assert.LessOrEqual(t, c.Sum(), cfg.TubeStockLength)
	}
	assert.InDelta(t, float64(plan.TotalUsed)/float64(plan.TotalUsed+plan.TotalWaste), plan.Efficiency, 1e-9)
}

func TestComputeTubePlanReportsInfeasiblePieces(t *testing.T) {
	cfg := model.DefaultConfig()
	items := []model.TubeItemInput{
		{Width: cfg.TubeStockLength + 500, Qty: 1},
		{Width: 1000, Qty: 1},
	}

	plan, err := ComputeTubePlan(items, cfg)
	require.NoError(t, err)
	require.Len(t, plan.InfeasiblePieces, 1)
	assert.Equal(t, cfg.TubeStockLength+500, plan.InfeasiblePieces[0].Width)
}

func TestComputeTubePlanRejectsInvalidStockLength(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.TubeStockLength = 0

	_, err := ComputeTubePlan([]model.TubeItemInput{{Width: 100, Qty: 1}}, cfg)
	require.Error(t, err)
}

func TestComputeTubePlanSkipsNonPositiveItemsSilently(t *testing.T) {
	cfg := model.DefaultConfig()
	items := []model.TubeItemInput{
		{Width: 0, Qty: 5},
		{Width: -100, Qty: 1},
		{Width: 1000, Qty: -3},
		{Width: 2000, Qty: 2},
	}

	plan, err := ComputeTubePlan(items, cfg)
	require.NoError(t, err)
	assert.Empty(t, plan.InfeasiblePieces)

	total := 0
	for _, c := range plan.Tubes {
		total += len(c.Pieces)
	}
	assert.Equal(t, 2, total, "only the valid item's two units should have been packed")
}

func TestPackBFDUsesMinimalLeftover(t *testing.T) {
	cuts := PackBFD([]int{4000, 3000, 2000}, 6000, 0)
	require.Len(t, cuts, 2)
}

func TestDedupePatternsGroupsIdenticalCuts(t *testing.T) {
	cuts := []model.TubeCut{
		{Pieces: []int{2500, 2500}},
		{Pieces: []int{2500, 2500}},
		{Pieces: []int{1000}},
	}
	patterns := DedupePatterns(cuts)
	require.Len(t, patterns, 2)
	assert.Equal(t, 2, patterns[0].Count)
	assert.Equal(t, 1, patterns[1].Count)
}

func TestDedupePatternsSortsByCountDesc(t *testing.T) {
	cuts := []model.TubeCut{
		// Input order deliberately puts the lower-count, larger-sum
		// pattern first so a sort that merely preserved first-occurrence
		// order would pass by coincidence elsewhere but not here.
		{Pieces: []int{5000}},
		{Pieces: []int{1000}},
		{Pieces: []int{1000}},
		{Pieces: []int{1000}},
		{Pieces: []int{4000, 1000}},
		{Pieces: []int{4000, 1000}},
	}
	patterns := DedupePatterns(cuts)
	require.Len(t, patterns, 3)
	assert.Equal(t, 3, patterns[0].Count, "highest count pattern (1000) sorts first")
	assert.Equal(t, 2, patterns[1].Count)
	assert.Equal(t, 1, patterns[2].Count)
	assert.Equal(t, 5000, patterns[2].Sample.Sum())
}

func TestImprovePairSwapsCanEmptyATube(t *testing.T) {
	// Three tubes: two with 2000mm slack each, one lone tube holding a
	// single 1500mm piece that fits into either's slack. The improvement
	// pass should fully empty the third tube.
	cuts := []model.TubeCut{
		{Pieces: []int{4000}},
		{Pieces: []int{4000}},
		{Pieces: []int{1500}},
	}
	improved := ImprovePairSwaps(cuts, 6000, 0)
	nonEmpty := 0
	for _, c := range improved {
		if len(c.Pieces) > 0 {
			nonEmpty++
		}
	}
	assert.LessOrEqual(t, nonEmpty, 2)
}
