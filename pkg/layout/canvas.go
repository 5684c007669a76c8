package layout

import "github.com/aretw0/chaptree/pkg/domain"

// ViewportGutter is the horizontal space kept free when boxes are shrunk to fit.
const ViewportGutter = 50

// TopOffset is the vertical offset of the first level inside the canvas.
const TopOffset = 10

// Scene is the fitted geometry of a forest inside a viewport.
type Scene struct {
	Config Config  `json:"config"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Boxes  []Box   `json:"boxes"`
}

// TreeWidth returns the width of all leaves including the outer margins.
func TreeWidth(f domain.Forest, cfg Config) float64 {
	leaves := float64(ForestLeafCount(f))
	return cfg.BoxWidth*leaves + cfg.HorizontalMargin*(leaves+1)
}

// Fit shrinks the box width when the tree would not fit in viewportWidth.
// A non-positive viewport leaves cfg unchanged.
func Fit(f domain.Forest, cfg Config, viewportWidth float64) Config {
	if viewportWidth <= 0 {
		return cfg
	}
	leaves := float64(ForestLeafCount(f))
	if TreeWidth(f, cfg) >= viewportWidth {
		w := (viewportWidth - ViewportGutter - cfg.HorizontalMargin*(leaves+1)) / leaves
		cfg.BoxWidth = max(w, 1)
	}
	return cfg
}

// CanvasHeight returns the height needed to draw every level, never less
// than two levels, plus one bottom margin.
func CanvasHeight(f domain.Forest, cfg Config) float64 {
	levels := float64(TreeHeight(f.Roots()))
	needed := levels * (cfg.BoxHeight + cfg.VerticalMargin)
	minimum := 2*cfg.BoxHeight + 2*cfg.VerticalMargin
	return max(needed, minimum) + cfg.VerticalMargin
}

// Offset returns the origin that centres the tree in a canvas of canvasWidth.
func Offset(f domain.Forest, cfg Config, canvasWidth float64) (x, y float64) {
	x = canvasWidth/2 - TreeWidth(f, cfg)/2 + cfg.HorizontalMargin
	return x, TopOffset
}

// Plan fits cfg to the viewport, centres the tree and computes every box.
// With a non-positive viewport the canvas is as wide as the tree.
func Plan(f domain.Forest, cfg Config, viewportWidth float64) Scene {
	fitted := Fit(f, cfg, viewportWidth)
	width := viewportWidth
	if width <= 0 {
		width = TreeWidth(f, fitted)
	}
	fitted.OriginX, fitted.OriginY = Offset(f, fitted, width)
	return Scene{
		Config: fitted,
		Width:  width,
		Height: CanvasHeight(f, fitted),
		Boxes:  Compute(f, fitted),
	}
}
