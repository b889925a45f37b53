package model

// EngineConfig holds the tunable constants every engine entry point reads.
// Loading it from a file or environment is the host's job — this is a
// plain value struct callers build in code.
type EngineConfig struct {
	// MarkerRollLength is the marker segment cap, in mm.
	MarkerRollLength float64 `json:"marker_roll_length_mm"`
	// SafetyGapX separates pieces of different drop on the same shelf
	// when computing a marker's gap-aware length, in mm.
	SafetyGapX float64 `json:"safety_gap_x_mm"`
	// SafetyGapY is reserved for inter-shelf separation; the packer
	// never applies it, reusing the caller-supplied pack gap instead.
	// Kept so callers that rely on its presence in the tunables table
	// are not broken, and as a documented hook for a future
	// implementation choice.
	SafetyGapY float64 `json:"safety_gap_y_mm"`
	// ApplyGapsToLength toggles whether marker length estimation counts
	// SafetyGapX once per drop-change interface on a shelf.
	ApplyGapsToLength bool `json:"apply_gaps_to_length"`
	// BoundaryEps is the float tolerance used at marker boundary and
	// shelf-height comparisons.
	BoundaryEps float64 `json:"boundary_eps"`
	// TubeStockLength is the default stock tube length, in mm.
	TubeStockLength int `json:"tube_stock_length_mm"`
	// TubeKerf is the default per-cut kerf, in mm.
	TubeKerf int `json:"tube_kerf_mm"`
}

// DefaultConfig returns an EngineConfig populated with the engine's
// documented defaults.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		MarkerRollLength:  5900,
		SafetyGapX:        10,
		SafetyGapY:        10,
		ApplyGapsToLength: true,
		BoundaryEps:       1e-6,
		TubeStockLength:   6000,
		TubeKerf:          0,
	}
}
