package core

import (
	"github.com/rs/zerolog"
)

// MinReceiptFontSize is the smallest size fit-to-page scales receipt text to.
const MinReceiptFontSize = 6

type Renderer struct {
	logger zerolog.Logger
}

func NewRenderer(logger zerolog.Logger) *Renderer {
	return &Renderer{logger: logger}
}

func FontFor(s FormatSettings) Font {
	style := FontRegular
	if s.Bold {
		style |= FontBold
	}
	if s.Italic {
		style |= FontItalic
	}
	if s.Underline {
		style |= FontUnderline
	}
	return Font{Family: s.FontName, Size: s.FontSize, Style: style}
}

// TextFormatFor maps settings to surface options. Justify has no native
// primitive and is drawn centered.
func TextFormatFor(s FormatSettings) TextFormat {
	f := TextFormat{
		Wrap:        s.WrapText,
		LineSpacing: s.LineSpacing,
	}
	switch s.Alignment {
	case AlignCenter, AlignJustify:
		f.Align = TextAlignCenter
	case AlignRight:
		f.Align = TextAlignFar
	default:
		f.Align = TextAlignNear
	}
	if s.PaperSize.IsReceipt() {
		f.Wrap = true
		f.LineLimit = true
		f.TrimWord = true
	}
	return f
}

func ColorFor(c TextColor) Color {
	return Color{R: clampChannel(c.R), G: clampChannel(c.G), B: clampChannel(c.B)}
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// FitFontSize scales size by width/measured when the measured text is wider
// than width. Receipt sizes never go below MinReceiptFontSize.
func FitFontSize(size, measured, width float64, paper PaperSize) float64 {
	if measured <= width || measured <= 0 {
		return size
	}
	scaled := size * (width / measured)
	if paper.IsReceipt() && scaled < MinReceiptFontSize {
		scaled = MinReceiptFontSize
	}
	return scaled
}

// Render draws text into bounds in a single pass. With FitToPage the text is
// measured first and the font shrunk horizontally to fit; vertical overflow
// is left to the surface.
func (r *Renderer) Render(surface Surface, bounds Rect, text string, s FormatSettings) error {
	font := FontFor(s)
	format := TextFormatFor(s)
	color := ColorFor(s.TextColor)

	if s.FitToPage {
		size, err := surface.MeasureText(text, font)
		if err != nil {
			return err
		}
		if size.Width > bounds.Width {
			scaled := FitFontSize(font.Size, size.Width, bounds.Width, s.PaperSize)
			r.logger.Debug().
				Float64("measured_width", size.Width).
				Float64("bounds_width", bounds.Width).
				Float64("font_size", font.Size).
				Float64("scaled_size", scaled).
				Msg("scaling font to fit page")
			font.Size = scaled
		}
	}

	return surface.DrawText(text, font, color, bounds, format)
}
