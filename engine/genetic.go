package engine

import (
	"math/rand"
	"sort"
	"time"

	"github.com/EGYCODE123/nester-pipeline-git/model"
)

// GeneticConfig tunes the optional genetic-algorithm packer, an alternate
// strategy a caller opts into when FFDH's single greedy pass leaves
// utilization on the table worth the extra compute.
type GeneticConfig struct {
	PopulationSize int
	Generations    int
	EliteCount     int
	MutationRate   float64
	TournamentSize int
}

// DefaultGeneticConfig returns reasonable defaults for a batch in the
// hundreds-of-pieces range; larger batches should shrink Generations to
// stay within the caller's time budget.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 40,
		Generations:    60,
		EliteCount:     4,
		MutationRate:   0.15,
		TournamentSize: 3,
	}
}

type geneticChromosome struct {
	order   []int
	fitness float64
}

func copyChromosome(c geneticChromosome) geneticChromosome {
	o := make([]int, len(c.order))
	copy(o, c.order)
	return geneticChromosome{order: o, fitness: c.fitness}
}

func decodeChromosome(c geneticChromosome, pieces []model.PieceInput, rollWidth, gap int, cfg model.EngineConfig) model.LayoutResult {
	ordered := make([]indexedPiece, len(c.order))
	for pos, itemID := range c.order {
		p := pieces[itemID]
		ordered[pos] = indexedPiece{w: float64(p.W), h: float64(p.H), itemID: itemID}
	}
	return packOrdered(ordered, rollWidth, gap, cfg, "PackGenetic")
}

// evaluateChromosome scores a candidate ordering by utilization, with a
// small penalty per shelf opened so two orderings of similar utilization
// prefer the one using fewer shelves.
func evaluateChromosome(layout model.LayoutResult) float64 {
	return layout.Utilization - 0.001*float64(layout.Levels)
}

func initGeneticPopulation(rng *rand.Rand, n int, pieces []model.PieceInput, opts model.PackOptions) []geneticChromosome {
	pop := make([]geneticChromosome, 0, n)

	greedy := orderPieces(pieces, opts)
	greedyOrder := make([]int, len(greedy))
	for i, p := range greedy {
		greedyOrder[i] = p.itemID
	}
	pop = append(pop, geneticChromosome{order: greedyOrder})

	for len(pop) < n {
		perm := rng.Perm(len(pieces))
		pop = append(pop, geneticChromosome{order: perm})
	}
	return pop
}

func tournamentSelect(rng *rand.Rand, pop []geneticChromosome, size int) geneticChromosome {
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < size; i++ {
		c := pop[rng.Intn(len(pop))]
		if c.fitness > best.fitness {
			best = c
		}
	}
	return best
}

// orderCrossover implements OX1: a contiguous slice of parent a is copied
// verbatim, the remaining genes are filled in parent b's relative order,
// skipping anything already placed.
func orderCrossover(rng *rand.Rand, a, b geneticChromosome) geneticChromosome {
	n := len(a.order)
	child := make([]int, n)
	for i := range child {
		child[i] = -1
	}

	start, end := rng.Intn(n), rng.Intn(n)
	if start > end {
		start, end = end, start
	}
	used := make(map[int]bool, n)
	for i := start; i <= end; i++ {
		child[i] = a.order[i]
		used[a.order[i]] = true
	}

	pos := 0
	for _, gene := range b.order {
		if used[gene] {
			continue
		}
		for pos >= start && pos <= end {
			pos++
		}
		if pos >= n {
			break
		}
		child[pos] = gene
		pos++
	}

	return geneticChromosome{order: child}
}

func mutateChromosome(rng *rand.Rand, c geneticChromosome, rate float64) {
	if len(c.order) < 2 {
		return
	}
	if rng.Float64() < rate {
		i, j := rng.Intn(len(c.order)), rng.Intn(len(c.order))
		c.order[i], c.order[j] = c.order[j], c.order[i]
	}
	if rng.Float64() < rate {
		i, j := rng.Intn(len(c.order)), rng.Intn(len(c.order))
		if i > j {
			i, j = j, i
		}
		for i < j {
			c.order[i], c.order[j] = c.order[j], c.order[i]
			i++
			j--
		}
	}
}

// PackGenetic searches for a packing order better than FFDH's single
// greedy pass using a tournament-selected, order-crossover genetic
// algorithm, decoding every candidate through the same shelf packer
// ComputeLayout uses.
func PackGenetic(pieces []model.PieceInput, rollWidth, gap int, opts model.PackOptions, cfg model.EngineConfig, gcfg GeneticConfig) (result model.LayoutResult, err error) {
	defer recoverInvariant(&err)

	if verr := validatePieces(pieces, rollWidth, gap); verr != nil {
		return model.LayoutResult{}, verr
	}
	if len(pieces) == 0 {
		return model.LayoutResult{Meta: model.LayoutMeta{Algo: "genetic"}}, nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now()

	pop := initGeneticPopulation(rng, gcfg.PopulationSize, pieces, opts)
	var best geneticChromosome
	var bestLayout model.LayoutResult

	for gen := 0; gen < gcfg.Generations; gen++ {
		for i := range pop {
			layout := decodeChromosome(pop[i], pieces, rollWidth, gap, cfg)
			pop[i].fitness = evaluateChromosome(layout)
			if gen == 0 && i == 0 || pop[i].fitness > best.fitness {
				best = copyChromosome(pop[i])
				bestLayout = layout
			}
		}

		sort.SliceStable(pop, func(i, j int) bool { return pop[i].fitness > pop[j].fitness })

		next := make([]geneticChromosome, 0, len(pop))
		for i := 0; i < gcfg.EliteCount && i < len(pop); i++ {
			next = append(next, copyChromosome(pop[i]))
		}
		for len(next) < len(pop) {
			parentA := tournamentSelect(rng, pop, gcfg.TournamentSize)
			parentB := tournamentSelect(rng, pop, gcfg.TournamentSize)
			child := orderCrossover(rng, parentA, parentB)
			mutateChromosome(rng, child, gcfg.MutationRate)
			next = append(next, child)
		}
		pop = next
	}

	bestLayout.Meta = model.LayoutMeta{Algo: "genetic-shelf", Duration: time.Since(start)}
	return bestLayout, nil
}
