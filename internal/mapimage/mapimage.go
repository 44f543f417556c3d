// Package mapimage draws a city grid as a flat top-down image, one square
// cell per tile. It is a debugging aid for headless runs.
package mapimage

import (
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/image/colornames"

	"citysim/engine/internal/sim"
)

// ColourScheme defines how tiles are coloured.
type ColourScheme struct {
	Ground       color.Color
	Construction color.Color
	Abandoned    color.Color
	LevelMarker  color.Color
	NoPower      color.Color
	NoRoadAccess color.Color
	Buildings    map[sim.BuildingType]color.Color
}

// DefaultScheme returns a reasonable default ColourScheme.
func DefaultScheme() *ColourScheme {
	return &ColourScheme{
		Ground:       colornames.Darkseagreen,
		Construction: colornames.Khaki,
		Abandoned:    colornames.Whitesmoke,
		LevelMarker:  colornames.Black,
		NoPower:      colornames.Gold,
		NoRoadAccess: colornames.Crimson,
		Buildings: map[sim.BuildingType]color.Color{
			sim.Residential: colornames.Royalblue,
			sim.Commercial:  colornames.Hotpink,
			sim.Industrial:  colornames.Firebrick,
			sim.Road:        colornames.Dimgray,
			sim.PowerPlant:  colornames.Indigo,
			sim.PowerLine:   colornames.Darkorange,
		},
	}
}

// Render draws every tile of c into a new image of size*cell pixels square.
func Render(c *sim.City, cell int, scheme *ColourScheme) (*image.RGBA, error) {
	if c == nil {
		return nil, errors.New("mapimage: nil city")
	}
	if cell < 4 {
		return nil, errors.New("mapimage: cell must be at least 4 pixels")
	}
	if scheme == nil {
		scheme = DefaultScheme()
	}

	px := c.Size() * cell
	im := image.NewRGBA(image.Rect(0, 0, px, px))
	dc := gg.NewContextForRGBA(im)
	dc.SetColor(scheme.Ground)
	dc.Clear()

	r := renderer{dc: dc, cell: float64(cell), scheme: scheme}
	for _, t := range c.Tiles() {
		b := t.Building()
		if b == nil {
			continue
		}
		r.draw(b.View())
	}
	return im, nil
}

// Save renders c and writes it to fpath as a PNG.
func Save(fpath string, c *sim.City, cell int, scheme *ColourScheme) error {
	im, err := Render(c, cell, scheme)
	if err != nil {
		return err
	}
	return gg.NewContextForRGBA(im).SavePNG(fpath)
}

// Encode renders c and writes it to w as a PNG.
func Encode(w io.Writer, c *sim.City, cell int, scheme *ColourScheme) error {
	im, err := Render(c, cell, scheme)
	if err != nil {
		return err
	}
	return gg.NewContextForRGBA(im).EncodePNG(w)
}

type renderer struct {
	dc     *gg.Context
	cell   float64
	scheme *ColourScheme
}

func (r renderer) colour(t sim.BuildingType) color.Color {
	if col, ok := r.scheme.Buildings[t]; ok {
		return col
	}
	return colornames.Magenta
}

func (r renderer) draw(v sim.BuildingView) {
	x0, y0 := float64(v.X)*r.cell, float64(v.Y)*r.cell
	switch {
	case v.Type == sim.Road:
		r.network(v, x0, y0, r.cell/3, false)
	case v.Type == sim.PowerLine:
		r.network(v, x0, y0, r.cell/8, true)
	case v.Development != nil:
		r.zone(v, x0, y0)
	default:
		r.block(x0, y0, r.colour(v.Type))
	}
	r.statusMarker(v, x0, y0)
}

// network draws a road or power line as spokes from the cell centre to each
// connected neighbour.
func (r renderer) network(v sim.BuildingView, x0, y0, width float64, pylon bool) {
	dc := r.dc
	cx, cy := x0+r.cell/2, y0+r.cell/2
	dc.SetColor(r.colour(v.Type))
	dc.SetLineWidth(width)
	dc.SetLineCapSquare()

	spokes := []struct {
		conn   sim.Connections
		dx, dy float64
	}{
		{sim.ConnTop, 0, -1},
		{sim.ConnBottom, 0, 1},
		{sim.ConnLeft, -1, 0},
		{sim.ConnRight, 1, 0},
	}
	for _, s := range spokes {
		if !v.Connections.Has(s.conn) {
			continue
		}
		dc.DrawLine(cx, cy, cx+s.dx*r.cell/2, cy+s.dy*r.cell/2)
		dc.Stroke()
	}
	if pylon {
		dc.DrawCircle(cx, cy, r.cell/6)
		dc.Fill()
		return
	}
	dc.DrawRectangle(cx-width/2, cy-width/2, width, width)
	dc.Fill()
}

func (r renderer) zone(v sim.BuildingView, x0, y0 float64) {
	dc := r.dc
	col := r.colour(v.Type)
	pad := r.pad()
	switch v.Development.State {
	case sim.Undeveloped:
		dc.SetColor(col)
		dc.SetLineWidth(pad)
		dc.DrawRectangle(x0+pad, y0+pad, r.cell-2*pad, r.cell-2*pad)
		dc.Stroke()
	case sim.UnderConstruction:
		r.block(x0, y0, r.scheme.Construction)
	case sim.Abandoned:
		r.block(x0, y0, r.scheme.Abandoned)
	default:
		r.block(x0, y0, col)
		dc.SetColor(r.scheme.LevelMarker)
		dot := r.cell / 10
		for i := 0; i < v.Development.Level; i++ {
			dc.DrawCircle(x0+pad+dot+float64(i)*3*dot, y0+r.cell-pad-dot, dot)
			dc.Fill()
		}
	}
}

func (r renderer) block(x0, y0 float64, col color.Color) {
	pad := r.pad()
	r.dc.SetColor(col)
	r.dc.DrawRectangle(x0+pad, y0+pad, r.cell-2*pad, r.cell-2*pad)
	r.dc.Fill()
}

// statusMarker flags buildings that are not ok in the top-right corner.
func (r renderer) statusMarker(v sim.BuildingView, x0, y0 float64) {
	var col color.Color
	switch v.Status {
	case sim.StatusNoPower:
		col = r.scheme.NoPower
	case sim.StatusNoRoadAccess:
		col = r.scheme.NoRoadAccess
	default:
		return
	}
	size := r.cell / 4
	r.dc.SetColor(col)
	r.dc.DrawRectangle(x0+r.cell-size, y0, size, size)
	r.dc.Fill()
}

func (r renderer) pad() float64 {
	if p := r.cell / 16; p > 1 {
		return p
	}
	return 1
}
