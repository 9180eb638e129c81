package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampMargin(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-10, 0},
		{0, 0},
		{75, 75},
		{200, 200},
		{500, 200},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampMargin(tt.in), "input %d", tt.in)
	}
}

func TestPaperFor(t *testing.T) {
	tests := []struct {
		paper PaperSize
		w, h  int
	}{
		{PaperA4, 827, 1169},
		{PaperA3, 1169, 1654},
		{PaperLetter, 850, 1100},
		{PaperLegal, 850, 1400},
		{PaperThermal58mm, 220, 3276},
		{PaperThermal80mm, 315, 3276},
		{PaperA5, 827, 1169},
		{PaperCustom, 827, 1169},
		{PaperSize(42), 827, 1169},
	}
	for _, tt := range tests {
		d := PaperFor(tt.paper)
		assert.Equal(t, tt.w, d.Width, tt.paper.String())
		assert.Equal(t, tt.h, d.Height, tt.paper.String())
	}
}

func TestPageGeometry_MarginBounds(t *testing.T) {
	s := DefaultFormatSettings()
	g := PageGeometryFor(s)
	assert.Equal(t, Rect{X: 50, Y: 50, Width: 727, Height: 1069}, g.MarginBounds())

	s.Orientation = Landscape
	g = PageGeometryFor(s)
	w, h := g.PageSize()
	assert.Equal(t, 1169, w)
	assert.Equal(t, 827, h)

	s = DefaultFormatSettings()
	s.PaperSize = PaperThermal58mm
	s.Margins = Margins{Left: 200, Right: 200}
	assert.Equal(t, 0.0, PageGeometryFor(s).MarginBounds().Width)
}

func TestNewPrintJob_Defaults(t *testing.T) {
	a := NewPrintJob("office", "", nil)
	b := NewPrintJob("office", "", nil)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, DefaultFormatSettings(), a.Settings)

	s := FormatSettings{}
	c := NewPrintJob("office", "x", &s)
	assert.Equal(t, float64(DefaultFontSize), c.Settings.FontSize)
	assert.Equal(t, DefaultFontName, c.Settings.FontName)
	assert.Equal(t, DefaultLineSpacing, c.Settings.LineSpacing)
}

func TestFormatSettings_UnmarshalKeepsDefaults(t *testing.T) {
	var s FormatSettings
	require.NoError(t, json.Unmarshal([]byte(`{"fontSize": 20, "paperSize": "thermal80mm", "alignment": "Justify", "orientation": 1}`), &s))

	assert.Equal(t, 20.0, s.FontSize)
	assert.Equal(t, PaperThermal80mm, s.PaperSize)
	assert.Equal(t, AlignJustify, s.Alignment)
	assert.Equal(t, Landscape, s.Orientation)
	assert.Equal(t, DefaultFontName, s.FontName)
	assert.True(t, s.FitToPage)
	assert.True(t, s.WrapText)
	assert.Equal(t, DefaultMargin, s.Margins.Top)
}

func TestFormatSettings_UnknownEnumsFallBack(t *testing.T) {
	var s FormatSettings
	require.NoError(t, json.Unmarshal([]byte(`{"paperSize": "B5", "alignment": 9, "orientation": "sideways"}`), &s))

	assert.Equal(t, PaperA4, s.PaperSize)
	assert.Equal(t, AlignLeft, s.Alignment)
	assert.Equal(t, Portrait, s.Orientation)
}

func TestFormatSettings_MarshalUsesNames(t *testing.T) {
	data, err := json.Marshal(DefaultFormatSettings())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"paperSize":"A4"`)
	assert.Contains(t, string(data), `"alignment":"left"`)
	assert.Contains(t, string(data), `"orientation":"portrait"`)
}
