package device

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/orrn/printqueue/internal/core"
)

var ErrInvalidFontSize = errors.New("font size must be positive")

// DefaultDPI makes one pixel equal one hundredth of an inch.
const DefaultDPI = 100

type faceKey struct {
	variant fontVariant
	size    float64
}

// RasterSurface draws a page into an RGBA image. Callers work in hundredths
// of an inch; the surface converts to pixels at its DPI.
type RasterSurface struct {
	img   *image.RGBA
	dpi   int
	faces map[faceKey]font.Face
}

func NewRasterSurface(widthUnits, heightUnits, dpi int) *RasterSurface {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	w := int(math.Round(float64(widthUnits) * float64(dpi) / 100))
	h := int(math.Round(float64(heightUnits) * float64(dpi) / 100))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return &RasterSurface{
		img:   img,
		dpi:   dpi,
		faces: make(map[faceKey]font.Face),
	}
}

func (s *RasterSurface) Image() *image.RGBA { return s.img }

// Close releases the font faces.
func (s *RasterSurface) Close() error {
	for k, f := range s.faces {
		f.Close()
		delete(s.faces, k)
	}
	return nil
}

func (s *RasterSurface) toPixels(units float64) float64 {
	return units * float64(s.dpi) / 100
}

func (s *RasterSurface) toUnits(px float64) float64 {
	return px * 100 / float64(s.dpi)
}

func (s *RasterSurface) face(f core.Font) (font.Face, error) {
	if f.Size <= 0 || math.IsNaN(f.Size) || math.IsInf(f.Size, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFontSize, f.Size)
	}
	key := faceKey{variant: variantFor(f), size: f.Size}
	if face, ok := s.faces[key]; ok {
		return face, nil
	}
	otf, err := loadFont(key.variant)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    f.Size,
		DPI:     float64(s.dpi),
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	s.faces[key] = face
	return face, nil
}

// MeasureText returns the size of text laid out without wrapping. The width
// is that of the widest line.
func (s *RasterSurface) MeasureText(text string, f core.Font) (core.Size, error) {
	face, err := s.face(f)
	if err != nil {
		return core.Size{}, err
	}
	lines := strings.Split(normalizeText(text), "\n")
	var widest fixed.Int26_6
	for _, line := range lines {
		if w := font.MeasureString(face, line); w > widest {
			widest = w
		}
	}
	height := fixedToFloat(face.Metrics().Height) * float64(len(lines))
	return core.Size{
		Width:  s.toUnits(fixedToFloat(widest)),
		Height: s.toUnits(height),
	}, nil
}

// DrawText draws text into rect, clipped to it.
func (s *RasterSurface) DrawText(text string, f core.Font, c core.Color, rect core.Rect, format core.TextFormat) error {
	face, err := s.face(f)
	if err != nil {
		return err
	}

	bounds := image.Rect(
		int(math.Round(s.toPixels(rect.X))),
		int(math.Round(s.toPixels(rect.Y))),
		int(math.Round(s.toPixels(rect.X+rect.Width))),
		int(math.Round(s.toPixels(rect.Y+rect.Height))),
	)
	clip := bounds.Intersect(s.img.Bounds())
	if clip.Empty() {
		return nil
	}
	dst := s.img.SubImage(clip).(*image.RGBA)
	src := image.NewUniform(color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})

	spacing := format.LineSpacing
	if spacing <= 0 {
		spacing = 1
	}
	metrics := face.Metrics()
	ascent := fixedToFloat(metrics.Ascent)
	descent := fixedToFloat(metrics.Descent)
	glyphHeight := fixedToFloat(metrics.Height)
	lineHeight := glyphHeight * spacing

	maxWidth := fixed.I(bounds.Dx())
	lines := layoutLines(face, normalizeText(text), maxWidth, format.Wrap, format.TrimWord)

	top := float64(bounds.Min.Y)
	for _, line := range lines {
		if top >= float64(bounds.Max.Y) {
			break
		}
		if format.LineLimit && top+glyphHeight > float64(bounds.Max.Y) {
			break
		}

		width := font.MeasureString(face, line)
		x := fixed.I(bounds.Min.X)
		switch format.Align {
		case core.TextAlignCenter:
			x += (maxWidth - width) / 2
		case core.TextAlignFar:
			x += maxWidth - width
		}
		baseline := top + ascent

		d := &font.Drawer{
			Dst:  dst,
			Src:  src,
			Face: face,
			Dot:  fixed.Point26_6{X: x, Y: floatToFixed(baseline)},
		}
		d.DrawString(line)

		if f.Style.Has(core.FontUnderline) && width > 0 {
			thickness := int(math.Max(1, math.Round(glyphHeight/16)))
			y := int(math.Round(baseline + descent/3))
			underline := image.Rect(x.Floor(), y, (x + width).Ceil(), y+thickness)
			draw.Draw(dst, underline.Intersect(clip), src, image.Point{}, draw.Over)
		}

		top += lineHeight
	}
	return nil
}

// layoutLines splits text into the lines to draw. Wrapping breaks at spaces
// and splits words wider than the line. Without wrapping, TrimWord cuts each
// overlong line back to the last word that fits.
func layoutLines(face font.Face, text string, maxWidth fixed.Int26_6, wrap, trimWord bool) []string {
	paragraphs := strings.Split(text, "\n")
	if !wrap {
		if !trimWord {
			return paragraphs
		}
		out := make([]string, 0, len(paragraphs))
		for _, p := range paragraphs {
			out = append(out, trimToWord(face, p, maxWidth))
		}
		return out
	}

	var out []string
	for _, p := range paragraphs {
		out = append(out, wrapParagraph(face, p, maxWidth)...)
	}
	return out
}

func wrapParagraph(face font.Face, p string, maxWidth fixed.Int26_6) []string {
	words := strings.Fields(p)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := ""
	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if font.MeasureString(face, candidate) <= maxWidth {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
			line = ""
		}
		if font.MeasureString(face, word) <= maxWidth {
			line = word
			continue
		}
		pieces := breakWord(face, word, maxWidth)
		lines = append(lines, pieces[:len(pieces)-1]...)
		line = pieces[len(pieces)-1]
	}
	return append(lines, line)
}

// breakWord splits a word into pieces no wider than maxWidth. Every piece
// holds at least one rune.
func breakWord(face font.Face, word string, maxWidth fixed.Int26_6) []string {
	var pieces []string
	var current []rune
	for _, r := range word {
		next := append(current, r)
		if len(current) > 0 && font.MeasureString(face, string(next)) > maxWidth {
			pieces = append(pieces, string(current))
			current = []rune{r}
			continue
		}
		current = next
	}
	return append(pieces, string(current))
}

func trimToWord(face font.Face, line string, maxWidth fixed.Int26_6) string {
	if font.MeasureString(face, line) <= maxWidth {
		return line
	}
	words := strings.Fields(line)
	out := ""
	for _, word := range words {
		candidate := word
		if out != "" {
			candidate = out + " " + word
		}
		if font.MeasureString(face, candidate) > maxWidth {
			break
		}
		out = candidate
	}
	return out
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ReplaceAll(text, "\t", "    ")
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
