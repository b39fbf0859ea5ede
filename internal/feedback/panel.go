package feedback

import "github.com/roach88/turtle/internal/evaluate"

// Panel grid geometry, in editor units.
const (
	PanelX0            = 10 // keeps left output plugs from being cut off
	PanelXPadding      = 200
	PanelYPadding      = 120
	PanelPerRow        = 2
	DefaultPanelHeight = 120
)

// PanelItem is one exemplar placed on the grid.
type PanelItem struct {
	Exemplar evaluate.Exemplar `json:"exemplar"`
	X        int               `json:"x"`
	Y        int               `json:"y"`
}

// Panel illustrates the constructs a program is missing.
type Panel struct {
	Items  []PanelItem `json:"items"`
	Height int         `json:"height"`
}

// Layout places exemplars left to right, PanelPerRow per row. The height
// starts at base (DefaultPanelHeight when non-positive) and grows by one
// row each time a row is completed.
func Layout(exemplars []evaluate.Exemplar, base int) *Panel {
	if base <= 0 {
		base = DefaultPanelHeight
	}
	p := &Panel{Height: base, Items: make([]PanelItem, 0, len(exemplars))}
	x, y := PanelX0, 0
	for i, ex := range exemplars {
		p.Items = append(p.Items, PanelItem{Exemplar: ex, X: x, Y: y})
		if (i+1)%PanelPerRow == 0 {
			y += PanelYPadding
			p.Height += PanelYPadding
			x = PanelX0
		} else {
			x += PanelXPadding
		}
	}
	return p
}
