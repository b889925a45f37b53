package engine

import (
	"github.com/EGYCODE123/nester-pipeline-git/model"
)

// ComparisonScenario names a set of packing settings to try against the
// same piece list, so a host can show side-by-side what-if alternatives.
type ComparisonScenario struct {
	Name      string
	RollWidth int
	Gap       int
	Opts      model.PackOptions
	Genetic   *GeneticConfig // nil runs ComputeLayout; set to run PackGenetic instead
}

// ComparisonResult holds one scenario's outcome alongside figures a
// comparison table cares about.
type ComparisonResult struct {
	Scenario     ComparisonScenario
	Layout       model.LayoutResult
	Err          error
	WastePercent float64
}

// CompareScenarios runs every scenario against the same piece list and
// returns the results in scenario order.
func CompareScenarios(pieces []model.PieceInput, cfg model.EngineConfig, scenarios []ComparisonScenario) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		var layout model.LayoutResult
		var err error
		if scenario.Genetic != nil {
			layout, err = PackGenetic(pieces, scenario.RollWidth, scenario.Gap, scenario.Opts, cfg, *scenario.Genetic)
		} else {
			layout, err = ComputeLayout(pieces, scenario.RollWidth, scenario.Gap, scenario.Opts, cfg)
		}

		waste := 0.0
		if err == nil {
			waste = 100.0 - layout.Utilization*100.0
		}

		results = append(results, ComparisonResult{
			Scenario:     scenario,
			Layout:       layout,
			Err:          err,
			WastePercent: waste,
		})
	}

	return results
}

// BuildDefaultScenarios generates the usual what-if set for a given roll
// width and gap: current (default-ordered FFDH), the KeepInputOrder
// variant, and a genetic-algorithm pass with its defaults.
func BuildDefaultScenarios(rollWidth, gap int) []ComparisonScenario {
	gcfg := DefaultGeneticConfig()
	return []ComparisonScenario{
		{Name: "FFDH default order", RollWidth: rollWidth, Gap: gap},
		{Name: "FFDH keep input order", RollWidth: rollWidth, Gap: gap, Opts: model.PackOptions{KeepInputOrder: true}},
		{Name: "Genetic algorithm", RollWidth: rollWidth, Gap: gap, Genetic: &gcfg},
	}
}
