package engine

import (
	"fmt"
	"hash"
	"log/slog"
	"math"
	"sort"
	"sync"

	"blainsmith.com/go/seahash"
	"github.com/EGYCODE123/nester-pipeline-git/model"
	clone "github.com/huandu/go-clone/generic"
)

// markerCache memoises BuildMarkersFromLayout results for the lifetime of
// the process, keyed by a content fingerprint of the layout and the
// settings that affect marker boundaries. It exists because the same
// layout is often re-segmented with identical settings across a single
// batch run, and marker splitting is the costlier of the two packing
// passes.
var markerCache = struct {
	mu sync.RWMutex
	m  map[uint64][]model.Marker
}{m: make(map[uint64][]model.Marker)}

// ClearMarkerCache discards every memoised marker set. Hosts call this
// between independent batch runs so a later run never observes a
// previous run's cached segmentation.
func ClearMarkerCache() {
	markerCache.mu.Lock()
	defer markerCache.mu.Unlock()
	markerCache.m = make(map[uint64][]model.Marker)
}

func fingerprintLayout(layout model.LayoutResult, batchID string, rollWidth int, cfg model.EngineConfig) uint64 {
	h := seahash.New()
	writeFingerprintFields(h, batchID, rollWidth, cfg)
	for _, s := range layout.Shelves {
		fmt.Fprintf(h, "|s:%.6f:%.6f", s.X0, s.Height)
	}
	placements := append([]model.Placement(nil), layout.Placements...)
	sortPlacementsForSplit(placements)
	for _, p := range placements {
		fmt.Fprintf(h, "|p:%d:%d:%.6f:%.6f:%.6f:%.6f", p.Level, p.ItemID, p.X, p.Y, p.W, p.H)
	}
	return h.Sum64()
}

func writeFingerprintFields(h hash.Hash64, batchID string, rollWidth int, cfg model.EngineConfig) {
	fmt.Fprintf(h, "batch:%s|roll:%d|marker:%.6f|gapx:%.6f|applygaps:%v",
		batchID, rollWidth, cfg.MarkerRollLength, cfg.SafetyGapX, cfg.ApplyGapsToLength)
}

// assignProvisionalMarker implements the boundary rule: a placement whose
// [x, x+h) interval crosses a roll_length boundary, or ends at or within
// eps of it, is pushed entirely into the next marker rather than cut.
func assignProvisionalMarker(p model.Placement, rollLength, eps float64) int {
	m := int(math.Floor(p.X / rollLength))
	boundary := float64(m+1) * rollLength
	if p.X+p.H > boundary-eps {
		m++
	}
	return m
}

// sortPlacementsForSplit orders a group in (x, level, item_id) order, the
// sequence the overlong-bucket split walks when deciding where to cut.
func sortPlacementsForSplit(group []model.Placement) {
	sort.SliceStable(group, func(i, j int) bool {
		if group[i].X != group[j].X {
			return group[i].X < group[j].X
		}
		if group[i].Level != group[j].Level {
			return group[i].Level < group[j].Level
		}
		return group[i].ItemID < group[j].ItemID
	})
}

// gapAwareExtent computes a group's marker-local X coordinates and its
// gap-aware length estimate: the physical extent of the farthest-reaching
// placement, plus one SafetyGapX for every same-level interface between
// two placements of differing along-roll extent.
func gapAwareExtent(group []model.Placement, cfg model.EngineConfig) (locals []float64, length float64) {
	if len(group) == 0 {
		return nil, 0
	}

	minX := group[0].X
	for _, p := range group[1:] {
		if p.X < minX {
			minX = p.X
		}
	}

	locals = make([]float64, len(group))
	base := 0.0
	byLevel := make(map[int][]int)
	for i, p := range group {
		lx := p.X - minX
		locals[i] = lx
		if end := lx + p.H; end > base {
			base = end
		}
		byLevel[p.Level] = append(byLevel[p.Level], i)
	}

	gapCount := 0
	for _, idxs := range byLevel {
		sort.SliceStable(idxs, func(a, b int) bool { return locals[idxs[a]] < locals[idxs[b]] })
		for k := 1; k < len(idxs); k++ {
			if math.Abs(group[idxs[k]].H-group[idxs[k-1]].H) > cfg.BoundaryEps {
				gapCount++
			}
		}
	}

	length = base
	if cfg.ApplyGapsToLength {
		length += float64(gapCount) * cfg.SafetyGapX
	}
	return locals, length
}

// splitOverlongGroup re-emits a provisional marker group that exceeds the
// roll length across as many sub-groups as needed: walk the group in
// split order, growing the current sub-group while its gap-aware estimate
// stays within the cap, and flush a new sub-group when the next piece
// would exceed it. A single placement that alone exceeds the cap (its own
// drop is longer than one marker) still gets a sub-group of its own — it
// cannot be split further without cutting the piece.
func splitOverlongGroup(group []model.Placement, cfg model.EngineConfig) [][]model.Placement {
	sortPlacementsForSplit(group)

	var groups [][]model.Placement
	var sub []model.Placement
	for _, p := range group {
		candidate := make([]model.Placement, len(sub)+1)
		copy(candidate, sub)
		candidate[len(sub)] = p

		_, clen := gapAwareExtent(candidate, cfg)
		if len(sub) == 0 || clen <= cfg.MarkerRollLength+cfg.BoundaryEps {
			sub = candidate
			continue
		}
		groups = append(groups, sub)
		sub = []model.Placement{p}
	}
	if len(sub) > 0 {
		groups = append(groups, sub)
	}
	return groups
}

// BuildMarkersFromLayout partitions a packed layout along its length axis
// into marker segments, applying the per-placement boundary rule so that
// no rectangle is ever cut across a marker: a placement whose interval
// straddles a boundary moves entirely into the next marker. Results are
// cached per process by a content fingerprint; callers get back a deep
// clone so mutating the returned markers never corrupts the cache.
func BuildMarkersFromLayout(layout model.LayoutResult, batchID string, rollWidth int, cfg model.EngineConfig) (markers []model.Marker, err error) {
	defer recoverInvariant(&err)

	fp := fingerprintLayout(layout, batchID, rollWidth, cfg)

	markerCache.mu.RLock()
	if cached, ok := markerCache.m[fp]; ok {
		markerCache.mu.RUnlock()
		return clone.Clone(cached), nil
	}
	markerCache.mu.RUnlock()

	provisional := make(map[int][]model.Placement)
	for _, p := range layout.Placements {
		m := assignProvisionalMarker(p, cfg.MarkerRollLength, cfg.BoundaryEps)
		provisional[m] = append(provisional[m], p)
	}

	ms := make([]int, 0, len(provisional))
	for m := range provisional {
		ms = append(ms, m)
	}
	sort.Ints(ms)

	var finalGroups [][]model.Placement
	for _, m := range ms {
		group := provisional[m]
		sortPlacementsForSplit(group)
		_, length := gapAwareExtent(group, cfg)
		if length <= cfg.MarkerRollLength+cfg.BoundaryEps {
			finalGroups = append(finalGroups, group)
			continue
		}
		slog.Warn("overlong marker bucket split",
			"provisional_marker", m, "batch_id", batchID, "length_mm", length)
		finalGroups = append(finalGroups, splitOverlongGroup(group, cfg)...)
	}

	built := make([]model.Marker, 0, len(finalGroups))
	for i, group := range finalGroups {
		locals, length := gapAwareExtent(group, cfg)

		rects := make([]model.MarkerPlacedRect, len(group))
		maxExtent := 0.0
		for j, p := range group {
			rects[j] = model.MarkerPlacedRect{ItemID: p.ItemID, Level: p.Level, X: locals[j], Y: p.Y, W: p.W, H: p.H}
			if end := locals[j] + p.H; end > maxExtent {
				maxExtent = end
			}
		}

		overflow := maxExtent - length
		if overflow > cfg.BoundaryEps {
			if overflow > 0.5 {
				panic(&InternalInvariantViolation{Component: "BuildMarkersFromLayout", Line: i, Detail: "marker overflow exceeds correction tolerance"})
			}
			slog.Warn("marker length corrected by minimal shift",
				"marker_idx", i+1, "batch_id", batchID, "overflow_mm", overflow)
			for j := range rects {
				rects[j].X -= overflow
			}
			length = maxExtent
		}

		built = append(built, model.Marker{
			Idx: i + 1, BatchID: batchID, RollWidth: rollWidth,
			Length: length, Rects: rects,
		})
	}

	markerCache.mu.Lock()
	markerCache.m[fp] = clone.Clone(built)
	markerCache.mu.Unlock()

	return built, nil
}
