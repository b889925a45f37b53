package engine

import (
	"sort"

	"github.com/EGYCODE123/nester-pipeline-git/model"
	"github.com/google/uuid"
)

// NewCalcID mints a short, human-readable calculation identifier the same
// way the reference model stamps run IDs: a UUID4, truncated to its first
// eight hex characters.
func NewCalcID() string {
	return uuid.New().String()[:8]
}

// selectRollWidth picks the roll width a whole ComputeEfficiency call packs
// every line against: the minimum candidate at least as wide as the
// widest piece, or the widest candidate if none fits (left for the packer
// to reject), or — with no candidates at all — the widest piece itself,
// floored at 3000mm.
func selectRollWidth(maxPieceWidth int, candidateWidths []int) int {
	if len(candidateWidths) == 0 {
		if maxPieceWidth > 3000 {
			return maxPieceWidth
		}
		return 3000
	}
	sorted := append([]int(nil), candidateWidths...)
	sort.Ints(sorted)
	for _, w := range sorted {
		if w >= maxPieceWidth {
			return w
		}
	}
	return sorted[len(sorted)-1]
}

// BuildLineResult turns one line's packed layout into the per-line area
// and waste figures ComputeEfficiency aggregates across a whole job.
// rollWidth is the width every line in the call was packed against, which
// is not necessarily the line's own piece width.
func BuildLineResult(line model.Line, rollWidth int, layout model.LayoutResult) model.LineResult {
	const sqmmPerSqm = 1_000_000.0

	var blindMM2 float64
	for _, p := range layout.Placements {
		blindMM2 += p.Area()
	}
	rollMM2 := float64(rollWidth) * layout.UsedLength
	wasteMM2 := rollMM2 - blindMM2
	if wasteMM2 < 0 {
		wasteMM2 = 0
	}

	var wastePct float64
	if blindMM2 > 0 {
		wastePct = 100 * wasteMM2 / blindMM2
	}
	var utilPct float64
	if rollMM2 > 0 {
		utilPct = 100 * clamp01(blindMM2/rollMM2)
	}

	return model.LineResult{
		LineID:         line.LineID,
		BlindAreaM2:    blindMM2 / sqmmPerSqm,
		RollAreaM2:     rollMM2 / sqmmPerSqm,
		WasteAreaM2:    wasteMM2 / sqmmPerSqm,
		WasteFactorPct: wastePct,
		UtilizationPct: utilPct,
		UsedLength:     layout.UsedLength,
		RollWidth:      rollWidth,
		Pieces:         len(layout.Placements),
		Levels:         layout.Levels,
	}
}

// sumLineResults folds a set of per-line results into job totals: summed
// areas, pieces and levels, plus the area-weighted efficiency and waste
// percentages.
func sumLineResults(results []model.LineResult) model.Totals {
	var t model.Totals
	for _, r := range results {
		t.BlindAreaM2 += r.BlindAreaM2
		t.RollAreaM2 += r.RollAreaM2
		t.WasteAreaM2 += r.WasteAreaM2
		t.Pieces += r.Pieces
		t.Levels += r.Levels
	}
	if t.RollAreaM2 > 0 {
		t.EffPct = 100 * clamp01(t.BlindAreaM2/t.RollAreaM2)
	}
	t.WastePct = 100 - t.EffPct
	return t
}

// ComputeEfficiency translates a list of requested lines into packer calls
// and aggregates the result: it selects a shared roll width from
// candidateWidths (or derives one from the pieces themselves), expands
// every line into qty copies of (width, drop), packs all lines in a
// single ComputeLayoutPerLine call with gap=0, and returns the per-line
// and aggregate utilisation figures.
func ComputeEfficiency(lines []model.Line, candidateWidths []int, cfg model.EngineConfig) (results []model.LineResult, totals model.Totals, err error) {
	defer recoverInvariant(&err)

	if len(lines) == 0 {
		totals.WastePct = 100
		return nil, totals, nil
	}

	maxPieceWidth := 0
	for _, ln := range lines {
		if ln.Width > maxPieceWidth {
			maxPieceWidth = ln.Width
		}
	}
	rollWidth := selectRollWidth(maxPieceWidth, candidateWidths)

	packLines := make([]model.PackLine, len(lines))
	for i, ln := range lines {
		pieces := make([]model.PieceInput, 0, ln.Qty)
		for q := 0; q < ln.Qty; q++ {
			pieces = append(pieces, model.PieceInput{W: ln.Width, H: ln.Drop})
		}
		packLines[i] = model.PackLine{LineID: ln.LineID, Pieces: pieces, RollWidth: rollWidth, Gap: 0}
	}

	perLine, perr := ComputeLayoutPerLine(packLines, model.PackOptions{}, cfg)
	if perr != nil {
		return nil, model.Totals{}, perr
	}

	results = make([]model.LineResult, 0, len(lines))
	for i, ln := range lines {
		results = append(results, BuildLineResult(ln, rollWidth, perLine.Lines[i].Layout))
	}

	return results, sumLineResults(results), nil
}
