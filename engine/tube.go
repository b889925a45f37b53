package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/EGYCODE123/nester-pipeline-git/model"
)

const maxPairSwapPasses = 2

// validateTubeInputs checks the preconditions that make a tube plan
// request malformed as a whole. Individual items with a non-positive
// width or quantity are not validation failures — ComputeTubePlan drops
// them silently during expansion instead of rejecting the other, valid
// items in the same call.
func validateTubeInputs(items []model.TubeItemInput, stockLength, kerf int) error {
	if stockLength <= 0 {
		return newValidationError("tube_stock_length", stockLength, "stock length must be > 0")
	}
	if kerf < 0 {
		return newValidationError("tube_kerf", kerf, "kerf must be >= 0")
	}
	return nil
}

// tubeWorking is the packer's mutable view of a tube while building a
// plan; it is frozen into model.TubeCut once packing finishes.
type tubeWorking struct {
	pieces []int
}

func (t *tubeWorking) used(kerf int) int {
	if len(t.pieces) == 0 {
		return 0
	}
	sum := 0
	for _, p := range t.pieces {
		sum += p
	}
	return sum + kerf*(len(t.pieces)-1)
}

// packBFD runs Best-Fit-Decreasing bin packing over widths (descending),
// placing each width on the tube with the least remaining capacity that
// still fits it. Grounded on heavybullets8-1d-nesting's
// bestFitDecreasing, adapted from its float-cm model to integer mm.
func packBFD(widths []int, stockLength, kerf int) []*tubeWorking {
	sorted := make([]int, len(widths))
	copy(sorted, widths)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	var tubes []*tubeWorking
	for _, w := range sorted {
		bestIdx := -1
		bestLeftover := stockLength + 1
		for i, t := range tubes {
			extra := w
			if len(t.pieces) > 0 {
				extra = kerf + w
			}
			used := t.used(kerf)
			if used+extra <= stockLength {
				leftover := stockLength - used - extra
				if leftover < bestLeftover {
					bestLeftover = leftover
					bestIdx = i
				}
			}
		}
		if bestIdx < 0 {
			tubes = append(tubes, &tubeWorking{pieces: []int{w}})
			continue
		}
		tubes[bestIdx].pieces = append(tubes[bestIdx].pieces, w)
	}
	return tubes
}

// improvePairSwaps tries, for up to maxPairSwapPasses passes, to empty a
// whole tube by redistributing every one of its pieces into the slack of
// other tubes. A move is only kept when it fully empties the source
// tube — partial, non-emptying swaps are rejected, per the bounded
// tube-emptying acceptance rule.
func improvePairSwaps(tubes []*tubeWorking, stockLength, kerf int) []*tubeWorking {
	for pass := 0; pass < maxPairSwapPasses; pass++ {
		emptied := false
		for i, src := range tubes {
			if len(src.pieces) == 0 {
				continue
			}
			if tryEmptyTube(tubes, i, stockLength, kerf) {
				emptied = true
			}
		}
		if !emptied {
			break
		}
		tubes = compactTubes(tubes)
	}
	return tubes
}

// tryEmptyTube attempts to relocate every piece currently on tubes[srcIdx]
// into other tubes' remaining slack, without opening a new tube. It
// mutates tubes in place and returns whether the source tube was fully
// emptied.
func tryEmptyTube(tubes []*tubeWorking, srcIdx, stockLength, kerf int) bool {
	src := tubes[srcIdx]
	trial := make([]*tubeWorking, len(tubes))
	for i, t := range tubes {
		cp := &tubeWorking{pieces: append([]int(nil), t.pieces...)}
		trial[i] = cp
	}
	trial[srcIdx].pieces = nil

	for _, w := range src.pieces {
		bestIdx := -1
		bestLeftover := stockLength + 1
		for i, t := range trial {
			if i == srcIdx {
				continue
			}
			extra := w
			if len(t.pieces) > 0 {
				extra = kerf + w
			}
			used := t.used(kerf)
			if used+extra <= stockLength {
				leftover := stockLength - used - extra
				if leftover < bestLeftover {
					bestLeftover = leftover
					bestIdx = i
				}
			}
		}
		if bestIdx < 0 {
			return false
		}
		trial[bestIdx].pieces = append(trial[bestIdx].pieces, w)
	}

	for i, t := range trial {
		tubes[i].pieces = t.pieces
	}
	return true
}

func compactTubes(tubes []*tubeWorking) []*tubeWorking {
	out := tubes[:0]
	for _, t := range tubes {
		if len(t.pieces) > 0 {
			out = append(out, t)
		}
	}
	return out
}

func patternKey(pieces []int) string {
	sorted := append([]int(nil), pieces...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, "x")
}

// dedupePatterns groups identical cut layouts (same multiset of piece
// widths) together so a cutting list can report "N tubes of this
// pattern" instead of N near-identical rows.
func dedupePatterns(cuts []model.TubeCut) []model.TubePattern {
	order := make([]string, 0)
	byKey := make(map[string]*model.TubePattern)
	for _, c := range cuts {
		key := patternKey(c.Pieces)
		if p, ok := byKey[key]; ok {
			p.Count++
			continue
		}
		byKey[key] = &model.TubePattern{Key: key, Sample: c, Count: 1}
		order = append(order, key)
	}
	patterns := make([]model.TubePattern, 0, len(order))
	for _, k := range order {
		patterns = append(patterns, *byKey[k])
	}
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Sample.Sum() > patterns[j].Sample.Sum()
	})
	return patterns
}

func tubesToCuts(tubes []*tubeWorking, kerf int) []model.TubeCut {
	cuts := make([]model.TubeCut, 0, len(tubes))
	for _, t := range tubes {
		cuts = append(cuts, model.TubeCut{Pieces: append([]int(nil), t.pieces...), Used: t.used(kerf)})
	}
	return cuts
}

func cutsToTubes(cuts []model.TubeCut) []*tubeWorking {
	tubes := make([]*tubeWorking, 0, len(cuts))
	for _, c := range cuts {
		tubes = append(tubes, &tubeWorking{pieces: append([]int(nil), c.Pieces...)})
	}
	return tubes
}

// ValidatePieces checks a tube cutting list's preconditions without
// packing anything. Exported so a caller can validate a request before
// committing to ComputeTubePlan.
func ValidatePieces(items []model.TubeItemInput, stockLength, kerf int) error {
	return validateTubeInputs(items, stockLength, kerf)
}

// PackBFD exposes the Best-Fit-Decreasing packing step on its own, given
// a flat list of piece widths (already expanded from quantities).
func PackBFD(widths []int, stockLength, kerf int) []model.TubeCut {
	return tubesToCuts(packBFD(widths, stockLength, kerf), kerf)
}

// ImprovePairSwaps exposes the bounded tube-emptying improvement pass on
// its own, given an already-packed set of tubes.
func ImprovePairSwaps(cuts []model.TubeCut, stockLength, kerf int) []model.TubeCut {
	return tubesToCuts(improvePairSwaps(cutsToTubes(cuts), stockLength, kerf), kerf)
}

// DedupePatterns exposes pattern deduplication on its own, given a set of
// packed tube cuts.
func DedupePatterns(cuts []model.TubeCut) []model.TubePattern {
	return dedupePatterns(cuts)
}

// ComputeTubePlan packs a cutting list of tube-stock items into fixed
// length stock using Best-Fit-Decreasing, a bounded tube-emptying
// improvement pass, and pattern deduplication. Items with a non-positive
// width or quantity are dropped silently; items wider than the stock
// length are reported in InfeasiblePieces instead.
func ComputeTubePlan(items []model.TubeItemInput, cfg model.EngineConfig) (result model.TubePlan, err error) {
	defer recoverInvariant(&err)

	stockLength, kerf := cfg.TubeStockLength, cfg.TubeKerf
	if verr := ValidatePieces(items, stockLength, kerf); verr != nil {
		return model.TubePlan{}, verr
	}

	var widths []int
	var infeasible []model.InfeasiblePiece
	for _, it := range items {
		if it.Width <= 0 || it.Qty <= 0 {
			continue
		}
		if it.Width > stockLength {
			infeasible = append(infeasible, model.InfeasiblePiece{
				Width:  it.Width,
				Reason: "width exceeds stock length",
			})
			continue
		}
		for i := 0; i < it.Qty; i++ {
			widths = append(widths, it.Width)
		}
	}

	rawCuts := PackBFD(widths, stockLength, kerf)
	rawCuts = ImprovePairSwaps(rawCuts, stockLength, kerf)

	cuts := make([]model.TubeCut, 0, len(rawCuts))
	var totalUsed, totalWaste int
	for lvl, c := range rawCuts {
		waste := stockLength - c.Used
		if c.Used < 0 || waste < 0 {
			panic(&InternalInvariantViolation{Component: "ComputeTubePlan", Line: lvl, Detail: "negative used/waste"})
		}
		cuts = append(cuts, model.TubeCut{Pieces: c.Pieces, Used: c.Used, Waste: waste})
		totalUsed += c.Used
		totalWaste += waste
	}

	efficiency := 0.0
	if totalUsed+totalWaste > 0 {
		efficiency = clamp01(float64(totalUsed) / float64(totalUsed+totalWaste))
	}

	return model.TubePlan{
		Tubes:            cuts,
		Patterns:         dedupePatterns(cuts),
		TotalUsed:        totalUsed,
		TotalWaste:       totalWaste,
		Efficiency:       efficiency,
		InfeasiblePieces: infeasible,
	}, nil
}
