package engine

import (
	"testing"

	"github.com/EGYCODE123/nester-pipeline-git/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLayoutSingleShelf(t *testing.T) {
	pieces := []model.PieceInput{
		{W: 500, H: 1000},
		{W: 400, H: 900},
	}
	cfg := model.DefaultConfig()

	res, err := ComputeLayout(pieces, 1000, 10, model.PackOptions{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Levels)
	assert.Len(t, res.Placements, 2)
	assert.InDelta(t, 1000, res.UsedLength, 1e-6)
}

func TestComputeLayoutOpensSecondShelfWhenWidthExhausted(t *testing.T) {
	pieces := []model.PieceInput{
		{W: 600, H: 1000},
		{W: 600, H: 1000},
	}
	cfg := model.DefaultConfig()

	res, err := ComputeLayout(pieces, 1000, 10, model.PackOptions{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Levels)
}

func TestComputeLayoutRejectsOversizedPiece(t *testing.T) {
	pieces := []model.PieceInput{{W: 1500, H: 500}}
	cfg := model.DefaultConfig()

	_, err := ComputeLayout(pieces, 1000, 10, model.PackOptions{}, cfg)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestComputeLayoutRejectsNegativeGap(t *testing.T) {
	pieces := []model.PieceInput{{W: 100, H: 100}}
	cfg := model.DefaultConfig()

	_, err := ComputeLayout(pieces, 1000, -1, model.PackOptions{}, cfg)
	require.Error(t, err)
}

func TestComputeLayoutEmptyInput(t *testing.T) {
	cfg := model.DefaultConfig()
	res, err := ComputeLayout(nil, 1000, 10, model.PackOptions{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Levels)
	assert.InDelta(t, 0, res.UsedLength, 1e-9)
	assert.InDelta(t, 0, res.Utilization, 1e-9)
}

func TestComputeLayoutEqualHeightShelvesStayWithinRollWidth(t *testing.T) {
	// Two 900mm pieces of the same drop cannot share a 1000mm shelf, so they
	// open two shelves of equal height; the 50mm piece joins the first one.
	// Compaction must not merge those shelves (960 + 10 + 900 > 1000), and
	// no shelf may end up wider than the roll.
	pieces := []model.PieceInput{
		{W: 900, H: 500},
		{W: 900, H: 500},
		{W: 50, H: 500},
	}
	cfg := model.DefaultConfig()

	res, err := ComputeLayout(pieces, 1000, 10, model.PackOptions{}, cfg)
	require.NoError(t, err)
	for _, s := range res.Shelves {
		assert.LessOrEqual(t, s.UsedY, 1000.0)
	}
}

func TestComputeLayoutUtilizationBounded(t *testing.T) {
	pieces := []model.PieceInput{
		{W: 300, H: 400},
		{W: 300, H: 400},
		{W: 300, H: 400},
	}
	cfg := model.DefaultConfig()

	res, err := ComputeLayout(pieces, 1000, 5, model.PackOptions{}, cfg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Utilization, 0.0)
	assert.LessOrEqual(t, res.Utilization, 1.0)
}

func TestComputeLayoutPerLineAggregates(t *testing.T) {
	cfg := model.DefaultConfig()
	lines := []model.PackLine{
		{LineID: "A", RollWidth: 1000, Gap: 10, Pieces: []model.PieceInput{{W: 500, H: 800}}},
		{LineID: "B", RollWidth: 1000, Gap: 10, Pieces: []model.PieceInput{{W: 400, H: 600}}},
	}

	res, err := ComputeLayoutPerLine(lines, model.PackOptions{}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, "A", res.Lines[0].LineID)
	for _, pl := range res.Lines {
		for _, p := range pl.Layout.Placements {
			assert.Equal(t, pl.LineID, p.LineID)
		}
	}
	assert.Greater(t, res.Combined.UsedLength, 0.0)
}

func TestComputeLayoutPerLineRejectsOversizedLine(t *testing.T) {
	cfg := model.DefaultConfig()
	pieces := make([]model.PieceInput, maxPiecesPerLine+1)
	for i := range pieces {
		pieces[i] = model.PieceInput{W: 10, H: 10}
	}
	lines := []model.PackLine{{LineID: "A", RollWidth: 1000, Gap: 1, Pieces: pieces}}

	_, err := ComputeLayoutPerLine(lines, model.PackOptions{}, cfg)
	require.Error(t, err)
}

func TestOrderPiecesKeepInputOrderTieBreak(t *testing.T) {
	pieces := []model.PieceInput{
		{W: 200, H: 500},
		{W: 300, H: 500},
		{W: 100, H: 800},
	}
	ordered := orderPieces(pieces, model.PackOptions{KeepInputOrder: true})
	require.Len(t, ordered, 3)
	assert.Equal(t, 2, ordered[0].itemID)
	assert.Equal(t, 1, ordered[1].itemID)
	assert.Equal(t, 0, ordered[2].itemID)
}

func TestOrderPiecesDefaultAreaDesc(t *testing.T) {
	pieces := []model.PieceInput{
		{W: 100, H: 100},
		{W: 500, H: 500},
	}
	ordered := orderPieces(pieces, model.PackOptions{})
	require.Len(t, ordered, 2)
	assert.Equal(t, 1, ordered[0].itemID)
}
