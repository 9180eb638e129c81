package core

import (
	"context"
	"errors"
)

// ErrPrinterUnavailable is returned by Device.Open when the named printer
// cannot be opened as a print target.
var ErrPrinterUnavailable = errors.New("printer unavailable")

type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type Size struct {
	Width  float64
	Height float64
}

type FontStyle uint8

const (
	FontRegular   FontStyle = 0
	FontBold      FontStyle = 1 << 0
	FontItalic    FontStyle = 1 << 1
	FontUnderline FontStyle = 1 << 2
)

func (s FontStyle) Has(f FontStyle) bool { return s&f != 0 }

// Font sizes are in points.
type Font struct {
	Family string
	Size   float64
	Style  FontStyle
}

type Color struct {
	R, G, B uint8
}

// TextAlign is the set of alignments a surface draws natively.
type TextAlign int

const (
	TextAlignNear TextAlign = iota
	TextAlignCenter
	TextAlignFar
)

type TextFormat struct {
	Align TextAlign
	// Wrap breaks lines to fit the rectangle width.
	Wrap bool
	// LineLimit draws only lines that fit entirely in the rectangle.
	LineLimit bool
	// TrimWord trims overflowing text at a word boundary.
	TrimWord    bool
	LineSpacing float64
}

// Surface is a page being drawn. Coordinates are in hundredths of an inch.
type Surface interface {
	MeasureText(text string, font Font) (Size, error)
	DrawText(text string, font Font, color Color, rect Rect, format TextFormat) error
}

// PageFunc draws one page onto surface within bounds.
type PageFunc func(surface Surface, bounds Rect) error

// Document identifies what is being printed on a device session.
type Document struct {
	Name     string
	Geometry PageGeometry
}

type Device interface {
	Open(ctx context.Context, printerName string, doc Document) (Session, error)
}

// Session prints a single document. Print blocks until the device reports
// completion or failure.
type Session interface {
	Print(ctx context.Context, page PageFunc) error
}

type PrinterDirectory interface {
	IsPrinterValid(name string) bool
}
