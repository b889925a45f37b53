package model

// TubeItemInput is a requested tube cut length with a quantity, the input
// to ComputeTubePlan.
type TubeItemInput struct {
	Width int `json:"width"`
	Qty   int `json:"qty"`
}

// InfeasiblePiece records a requested width that cannot be cut from the
// configured stock length.
type InfeasiblePiece struct {
	Width  int    `json:"width"`
	Reason string `json:"reason"`
}

// TubeCut is one stock tube with its ordered cut list.
type TubeCut struct {
	Pieces []int `json:"pieces"`
	Used   int   `json:"used"`
	Waste  int   `json:"waste"`
}

// Sum returns the sum of the tube's cut lengths (excluding kerf).
func (t TubeCut) Sum() int {
	total := 0
	for _, p := range t.Pieces {
		total += p
	}
	return total
}

// TubePattern is an equivalence class of tubes sharing an identical
// multiset of cut lengths.
type TubePattern struct {
	Key    string  `json:"key"`
	Sample TubeCut `json:"sample"`
	Count  int     `json:"count"`
}

// TubePlan is the aggregate result of ComputeTubePlan.
type TubePlan struct {
	Tubes            []TubeCut         `json:"tubes"`
	Patterns         []TubePattern     `json:"patterns"`
	TotalUsed        int               `json:"total_used"`
	TotalWaste       int               `json:"total_waste"`
	Efficiency       float64           `json:"efficiency"`
	InfeasiblePieces []InfeasiblePiece `json:"infeasible_pieces"`
}
