// Package layout derives two-dimensional box geometry from the shape of a chapter forest.
//
// Every chapter gets one box. A box spans the width reserved for all the
// leaves below it, so wide subtrees take proportionally more horizontal
// space and boxes never overlap.
package layout

import "github.com/aretw0/chaptree/pkg/domain"

// Config holds the dimensions used by the geometry pass.
type Config struct {
	BoxWidth         float64 `json:"box_width" mapstructure:"box_width"`
	BoxHeight        float64 `json:"box_height" mapstructure:"box_height"`
	HorizontalMargin float64 `json:"horizontal_margin" mapstructure:"horizontal_margin"`
	VerticalMargin   float64 `json:"vertical_margin" mapstructure:"vertical_margin"`
	OriginX          float64 `json:"origin_x" mapstructure:"origin_x"`
	OriginY          float64 `json:"origin_y" mapstructure:"origin_y"`
}

// DefaultConfig returns the dimensions of the authoring view.
func DefaultConfig() Config {
	return Config{
		BoxWidth:         200,
		BoxHeight:        120,
		HorizontalMargin: 40,
		VerticalMargin:   70,
		OriginX:          20,
		OriginY:          20,
	}
}

// Box is the geometry of one chapter.
type Box struct {
	NodeID string      `json:"node_id"`
	Path   domain.Path `json:"path"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Depth  int         `json:"depth"`
}

// CountLeafNodes returns 1 for a chapter without children, and otherwise
// the sum of the leaf counts of its children.
func CountLeafNodes(n *domain.Node) int {
	if n.IsLeaf() {
		return 1
	}
	total := 0
	for _, c := range n.Children() {
		total += CountLeafNodes(c)
	}
	return total
}

// ForestLeafCount sums CountLeafNodes over the roots.
func ForestLeafCount(f domain.Forest) int {
	total := 0
	for _, r := range f.Roots() {
		total += CountLeafNodes(r)
	}
	return total
}

// TreeHeight returns 0 for no nodes, and otherwise the number of levels
// of the deepest chapter.
func TreeHeight(nodes []*domain.Node) int {
	height := 0
	for _, n := range nodes {
		height = max(height, 1+TreeHeight(n.Children()))
	}
	return height
}

// SubtreeWidth returns the width reserved for n and its descendants.
func (c Config) SubtreeWidth(n *domain.Node) float64 {
	leaves := float64(CountLeafNodes(n))
	return leaves*c.BoxWidth + (leaves-1)*c.HorizontalMargin
}

// Compute places every chapter of f in pre-order, left to right.
// Each sibling list threads its own cursor starting at the parent's x;
// children sit one level below their parent.
func Compute(f domain.Forest, cfg Config) []Box {
	boxes := make([]Box, 0, f.Count())
	var place func(nodes []*domain.Node, x float64, depth int, prefix domain.Path)
	place = func(nodes []*domain.Node, x float64, depth int, prefix domain.Path) {
		cursor := x
		for i, n := range nodes {
			path := prefix.Child(i)
			width := cfg.SubtreeWidth(n)
			boxes = append(boxes, Box{
				NodeID: n.ID(),
				Path:   path,
				X:      cursor,
				Y:      cfg.OriginY + float64(depth)*(cfg.BoxHeight+cfg.VerticalMargin),
				Width:  width,
				Height: cfg.BoxHeight,
				Depth:  depth,
			})
			place(n.Children(), cursor, depth+1, path)
			cursor += width + cfg.HorizontalMargin
		}
	}
	place(f.Roots(), cfg.OriginX, 0, nil)
	return boxes
}
