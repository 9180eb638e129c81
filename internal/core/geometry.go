package core

const (
	MinMargin = 0
	MaxMargin = 200
)

// PaperDimensions is a physical paper size in hundredths of an inch.
type PaperDimensions struct {
	Name   string
	Width  int
	Height int
}

var defaultPaper = PaperDimensions{Name: "A4", Width: 827, Height: 1169}

var paperTable = map[PaperSize]PaperDimensions{
	PaperA4:          defaultPaper,
	PaperA3:          {Name: "A3", Width: 1169, Height: 1654},
	PaperLetter:      {Name: "Letter", Width: 850, Height: 1100},
	PaperLegal:       {Name: "Legal", Width: 850, Height: 1400},
	PaperThermal58mm: {Name: "Thermal 58mm", Width: 220, Height: 3276},
	PaperThermal80mm: {Name: "Thermal 80mm", Width: 315, Height: 3276},
}

// PaperFor maps a paper size to its dimensions. Sizes without an entry,
// A5 and Custom included, fall back to A4.
func PaperFor(p PaperSize) PaperDimensions {
	if d, ok := paperTable[p]; ok {
		return d
	}
	return defaultPaper
}

func ClampMargin(v int) int {
	if v < MinMargin {
		return MinMargin
	}
	if v > MaxMargin {
		return MaxMargin
	}
	return v
}

func ClampMargins(m Margins) Margins {
	return Margins{
		Top:    ClampMargin(m.Top),
		Bottom: ClampMargin(m.Bottom),
		Left:   ClampMargin(m.Left),
		Right:  ClampMargin(m.Right),
	}
}

// PageGeometry is what a device session needs to set up the page.
type PageGeometry struct {
	Paper     PaperDimensions
	Landscape bool
	Margins   Margins
}

func PageGeometryFor(s FormatSettings) PageGeometry {
	return PageGeometry{
		Paper:     PaperFor(s.PaperSize),
		Landscape: s.Orientation == Landscape,
		Margins:   ClampMargins(s.Margins),
	}
}

// PageSize returns the oriented page width and height.
func (g PageGeometry) PageSize() (int, int) {
	if g.Landscape {
		return g.Paper.Height, g.Paper.Width
	}
	return g.Paper.Width, g.Paper.Height
}

// MarginBounds is the printable rectangle inside the margins. It collapses
// to zero width or height when the margins overlap.
func (g PageGeometry) MarginBounds() Rect {
	w, h := g.PageSize()
	r := Rect{
		X:      float64(g.Margins.Left),
		Y:      float64(g.Margins.Top),
		Width:  float64(w - g.Margins.Left - g.Margins.Right),
		Height: float64(h - g.Margins.Top - g.Margins.Bottom),
	}
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	return r
}
