// Package model defines the wire records exchanged at the boundary of the
// layout-optimization core: the instance produced by parsing, and the
// solution produced by solving.
package model

// Site is an immutable draw-space site position, §3 of the spec. A site's
// index in the enclosing slice is its identity within one solve.
type Site struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Name string  `json:"name,omitempty"`
}

// Instance is the §6 "instance form" output record: the parsed tree, the
// bound and draw-space-projected sites, and enough geo metadata for an
// external renderer to draw a background map.
type Instance struct {
	Title              string  `json:"title"`
	Tree               string  `json:"tree"`
	Sites              []Site  `json:"sites"`
	NumLeaves          int     `json:"num_leaves"`
	MaxCumBranchLength float64 `json:"maxCumBranchLength"`

	MercatorMinX float64 `json:"mercator_min_x"`
	MercatorMaxX float64 `json:"mercator_max_x"`
	MercatorMinY float64 `json:"mercator_min_y"`
	MercatorMaxY float64 `json:"mercator_max_y"`

	LeftCoord float64 `json:"left_coord"`
	TopCoord  float64 `json:"top_coord"`
	MapWidth  float64 `json:"map_width"`
	MapHeight float64 `json:"map_height"`

	// LeafOrder lists Newick leaf labels in the order they were bound to
	// Sites, so a later Solve call can rebuild the tree/site binding
	// without re-parsing the geo feature set.
	LeafOrder []string `json:"leaf_order"`
}

// Solution is the §6 "solution form" output record. LeafPos and
// ShouldRotate are keyed by the stringified vertex id (leaf id and internal
// id respectively), matching the "<leaf_id>"/"<internal_id>" map keys of
// spec §6 — JSON object keys are always strings.
type Solution struct {
	NumIntersections int             `json:"num_intersections"`
	LeafPos          map[string]int  `json:"leaf_pos"`
	ShouldRotate     map[string]bool `json:"should_rotate"`
	LType            string          `json:"lType"`
}
