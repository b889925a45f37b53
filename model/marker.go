package model

// MarkerPlacedRect is a placed rectangle in marker-local coordinates.
// W and H are bit-identical to the source Placement — the segmenter never
// resizes a piece.
type MarkerPlacedRect struct {
	ItemID int     `json:"item_id"`
	Level  int     `json:"level"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
}

// Marker is a segment of roll no longer than MarkerRollLength, built so
// that no placed rectangle is cut across a marker boundary. The one
// exception is a marker holding a single placement whose drop alone
// exceeds MarkerRollLength: its length is that placement's drop.
type Marker struct {
	Idx       int                `json:"idx"`
	BatchID   string             `json:"batch_id"`
	RollWidth int                `json:"roll_width"`
	Length    float64            `json:"length"`
	Rects     []MarkerPlacedRect `json:"rects"`
}
