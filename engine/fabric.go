package engine

import (
	"math"
	"sort"
	"time"

	"github.com/EGYCODE123/nester-pipeline-git/model"
)

// Domain limits the fabric packer enforces before placing anything.
const (
	maxPiecesPerPack  = 100_000
	maxPiecesPerLine  = 1_000
	maxPieceWidth     = 3200
	maxPieceDrop      = 5000
	algoNameFFDH      = "FFDH-horizontal"
)

// indexedPiece is a PieceInput carrying the index it had in the caller's
// original slice — the item_id every Placement downstream must preserve.
type indexedPiece struct {
	w, h   float64
	itemID int
}

// shelfItem is one piece placed on a shelf, in marker-local-free shelf
// coordinates (y measured from the shelf's own origin).
type shelfItem struct {
	itemID int
	w, h   float64
	y      float64
}

// shelfState is the packer's working representation of a shelf while
// packing and compacting; it is frozen into model.Shelf/model.Placement
// once the call completes.
type shelfState struct {
	x0     float64
	height float64
	usedY  float64
	items  []shelfItem
}

func validatePieces(pieces []model.PieceInput, rollWidth, gap int) error {
	if gap < 0 {
		return newValidationError("gap", gap, "gap must be >= 0")
	}
	if len(pieces) > maxPiecesPerPack {
		return newValidationError("pieces", len(pieces), "too many pieces (hard cap 100000)")
	}
	maxW := 0
	for i, p := range pieces {
		if p.W <= 0 {
			return newValidationError("pieces[].w", p.W, "width must be > 0")
		}
		if p.H <= 0 {
			return newValidationError("pieces[].h", p.H, "drop must be > 0")
		}
		if p.W > maxPieceWidth {
			return newValidationError("pieces[].w", p.W, "width exceeds domain limit 3200mm")
		}
		if p.H > maxPieceDrop {
			return newValidationError("pieces[].h", p.H, "drop exceeds domain limit 5000mm")
		}
		if p.W > maxW {
			maxW = p.W
		}
		_ = i
	}
	if maxW > rollWidth {
		return newValidationError("roll_width", rollWidth, "roll width smaller than the widest piece")
	}
	return nil
}

// orderPieces reorders pieces for the FFDH pass: the default is area
// desc, width desc, drop desc, landing the largest rectangles first;
// KeepInputOrder instead selects the plain FFDH sort key (drop desc,
// width desc, index asc).
func orderPieces(pieces []model.PieceInput, opts model.PackOptions) []indexedPiece {
	ordered := make([]indexedPiece, len(pieces))
	for i, p := range pieces {
		ordered[i] = indexedPiece{w: float64(p.W), h: float64(p.H), itemID: i}
	}
	if opts.KeepInputOrder {
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].h != ordered[j].h {
				return ordered[i].h > ordered[j].h
			}
			if ordered[i].w != ordered[j].w {
				return ordered[i].w > ordered[j].w
			}
			return ordered[i].itemID < ordered[j].itemID
		})
		return ordered
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		ai, aj := ordered[i].w*ordered[i].h, ordered[j].w*ordered[j].h
		if ai != aj {
			return ai > aj
		}
		if ordered[i].w != ordered[j].w {
			return ordered[i].w > ordered[j].w
		}
		return ordered[i].h > ordered[j].h
	})
	return ordered
}

// placeOnShelf runs the best-fit shelf selection rule — pick the
// qualifying shelf with the least leftover Y space, or open a new one —
// mutating shelves in place and returning the chosen shelf index.
func placeOnShelf(shelves *[]*shelfState, piece indexedPiece, rollWidth, gap, eps float64) int {
	bestIdx := -1
	bestLeftover := 0.0
	var bestNeedY float64

	for i, s := range *shelves {
		if s.height+eps < piece.h {
			continue
		}
		needY := piece.w
		if s.usedY > 0 {
			needY = gap + piece.w
		}
		if needY <= rollWidth-s.usedY+eps {
			leftover := rollWidth - s.usedY - needY
			if bestIdx < 0 || leftover < bestLeftover {
				bestIdx = i
				bestLeftover = leftover
				bestNeedY = needY
			}
		}
	}

	if bestIdx < 0 {
		var x0 float64
		if len(*shelves) > 0 {
			prev := (*shelves)[len(*shelves)-1]
			x0 = prev.x0 + prev.height + gap
		}
		ns := &shelfState{x0: x0, height: piece.h, usedY: piece.w}
		ns.items = append(ns.items, shelfItem{itemID: piece.itemID, w: piece.w, h: piece.h, y: 0})
		*shelves = append(*shelves, ns)
		return len(*shelves) - 1
	}

	s := (*shelves)[bestIdx]
	y := 0.0
	if s.usedY > 0 {
		y = s.usedY + gap
	}
	s.items = append(s.items, shelfItem{itemID: piece.itemID, w: piece.w, h: piece.h, y: y})
	s.usedY += bestNeedY
	return bestIdx
}

// compactShelves runs the two-pass compaction: intra-shelf left-shift in
// Y, then adjacent-shelf merge.
func compactShelves(shelves []*shelfState, rollWidth, gap, eps float64) []*shelfState {
	for _, s := range shelves {
		compactShelfY(s, gap)
	}

	i := 0
	for i < len(shelves)-1 {
		si, sj := shelves[i], shelves[i+1]
		if math.Abs(si.height-sj.height) > eps {
			i++
			continue
		}
		connecting := 0.0
		if si.usedY > 0 && sj.usedY > 0 {
			connecting = gap
		}
		if si.usedY+connecting+sj.usedY > rollWidth+eps {
			i++
			continue
		}

		offset := si.usedY + connecting
		for _, it := range sj.items {
			it.y += offset
			si.items = append(si.items, it)
		}
		si.usedY += connecting + sj.usedY

		removedSpan := sj.height + gap
		shelves = append(shelves[:i+1], shelves[i+2:]...)
		for k := i + 1; k < len(shelves); k++ {
			shelves[k].x0 -= removedSpan
		}
		// Re-check the same index i for further merges.
	}

	return shelves
}

// compactShelfY re-lays a shelf's pieces tightly from y=0, sorted by
// current y ascending; it never increases usedY.
func compactShelfY(s *shelfState, gap float64) {
	sort.SliceStable(s.items, func(i, j int) bool { return s.items[i].y < s.items[j].y })
	y := 0.0
	for i := range s.items {
		if i == 0 {
			s.items[i].y = 0
			y = s.items[i].w
			continue
		}
		s.items[i].y = y + gap
		y = s.items[i].y + s.items[i].w
	}
	if y < s.usedY {
		s.usedY = y
	}
}

func assertLayoutInvariants(component string, shelves []*shelfState, rollWidth, eps float64) {
	for lvl, s := range shelves {
		for i, it := range s.items {
			if it.y < -eps {
				panic(&InternalInvariantViolation{Component: component, Shelf: lvl, Detail: "negative y"})
			}
			if it.y+it.w > rollWidth+eps {
				panic(&InternalInvariantViolation{Component: component, Shelf: lvl, Detail: "y overflow past roll width"})
			}
			if it.h > s.height+eps {
				panic(&InternalInvariantViolation{Component: component, Shelf: lvl, Detail: "piece drop exceeds shelf height"})
			}
			if i > 0 && s.items[i-1].y+s.items[i-1].w > it.y+eps {
				panic(&InternalInvariantViolation{Component: component, Shelf: lvl, Detail: "pieces overlap in y"})
			}
		}
	}
}

func shelvesToPlacements(shelves []*shelfState, lineID string) ([]model.Placement, []model.Shelf) {
	placements := make([]model.Placement, 0)
	modelShelves := make([]model.Shelf, 0, len(shelves))
	for lvl, s := range shelves {
		for _, it := range s.items {
			placements = append(placements, model.Placement{
				X: s.x0, Y: it.y, W: it.w, H: it.h,
				Level: lvl, ItemID: it.itemID, LineID: lineID,
			})
		}
		modelShelves = append(modelShelves, model.Shelf{X0: s.x0, Height: s.height, UsedY: s.usedY})
	}
	return placements, modelShelves
}

func usedLengthOf(shelves []*shelfState) float64 {
	if len(shelves) == 0 {
		return 0
	}
	last := shelves[len(shelves)-1]
	return last.x0 + last.height
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ComputeLayout places pieces onto a roll of the given width using FFDH
// with best-fit shelf choice, then compacts the result.
func ComputeLayout(pieces []model.PieceInput, rollWidth, gap int, opts model.PackOptions, cfg model.EngineConfig) (result model.LayoutResult, err error) {
	defer recoverInvariant(&err)

	if verr := validatePieces(pieces, rollWidth, gap); verr != nil {
		return model.LayoutResult{}, verr
	}

	start := time.Now()
	ordered := orderPieces(pieces, opts)
	result = packOrdered(ordered, rollWidth, gap, cfg, "ComputeLayout")
	result.Meta = model.LayoutMeta{Algo: algoNameFFDH, Duration: time.Since(start)}
	return result, nil
}

// packOrdered runs the shelf placement and compaction passes for pieces
// already in their final packing order. It is shared by ComputeLayout
// (FFDH ordering) and PackGenetic (chromosome-determined ordering).
func packOrdered(ordered []indexedPiece, rollWidth, gap int, cfg model.EngineConfig, component string) model.LayoutResult {
	var shelves []*shelfState
	rw, g, eps := float64(rollWidth), float64(gap), cfg.BoundaryEps
	for _, p := range ordered {
		placeOnShelf(&shelves, p, rw, g, eps)
	}

	// cfg.SafetyGapY is reserved for a between-shelf separation distinct
	// from the within-shelf gap; it is intentionally unused here, reusing
	// g for both (see model.EngineConfig.SafetyGapY).
	shelves = compactShelves(shelves, rw, g, eps)
	assertLayoutInvariants(component, shelves, rw, eps)

	placements, modelShelves := shelvesToPlacements(shelves, "")
	usedLength := usedLengthOf(shelves)

	var area float64
	for _, p := range ordered {
		area += p.w * p.h
	}
	util := 0.0
	if usedLength > 0 {
		util = clamp01(area / (rw * usedLength))
	}

	return model.LayoutResult{
		Placements:  placements,
		Shelves:     modelShelves,
		UsedLength:  usedLength,
		Utilization: util,
		Levels:      len(shelves),
	}
}

// ComputeLayoutPerLine runs ComputeLayout once per line (each with its own
// roll width and gap), tags each placement with its line ID, and
// aggregates the combined used length and utilization.
func ComputeLayoutPerLine(lines []model.PackLine, opts model.PackOptions, cfg model.EngineConfig) (result model.PerLineResult, err error) {
	defer recoverInvariant(&err)

	perLine := make([]model.PerLineLayout, 0, len(lines))
	var totalUsedLength, totalArea, totalRollArea float64

	for _, line := range lines {
		if len(line.Pieces) > maxPiecesPerLine {
			return model.PerLineResult{}, newValidationError("pieces", len(line.Pieces), "too many pieces for a single line (cap 1000)")
		}
		layout, lerr := ComputeLayout(line.Pieces, line.RollWidth, line.Gap, opts, cfg)
		if lerr != nil {
			return model.PerLineResult{}, lerr
		}
		for i := range layout.Placements {
			layout.Placements[i].LineID = line.LineID
		}
		perLine = append(perLine, model.PerLineLayout{LineID: line.LineID, Layout: layout})

		var lineArea float64
		for _, p := range layout.Placements {
			lineArea += p.Area()
		}
		totalArea += lineArea
		totalUsedLength += layout.UsedLength
		totalRollArea += float64(line.RollWidth) * layout.UsedLength
	}

	combined := model.CombinedLayout{UsedLength: totalUsedLength}
	if totalRollArea > 0 {
		combined.Utilization = clamp01(totalArea / totalRollArea)
	}

	return model.PerLineResult{Lines: perLine, Combined: combined}, nil
}
