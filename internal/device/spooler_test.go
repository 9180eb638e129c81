package device

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printqueue/internal/config"
	"github.com/orrn/printqueue/internal/core"
)

type staticPrinters struct {
	devices map[string]config.PrinterDevice
	invalid map[string]bool
}

func (p staticPrinters) Lookup(name string) (config.PrinterDevice, bool) {
	d, ok := p.devices[name]
	return d, ok
}

func (p staticPrinters) IsPrinterValid(name string) bool {
	_, ok := p.devices[name]
	return ok && !p.invalid[name]
}

func newTestSpooler(t *testing.T, dpi int) (*Spooler, string) {
	t.Helper()
	dir := t.TempDir()
	printers := staticPrinters{
		devices: map[string]config.PrinterDevice{
			"office": {Name: "office", Kind: config.PrinterKindFile, Path: dir, DPI: dpi},
			"broken": {Name: "broken", Kind: config.PrinterKindFile, Path: dir, DPI: dpi},
		},
		invalid: map[string]bool{"broken": true},
	}
	return NewSpooler(printers, time.Second, zerolog.Nop()), dir
}

func geometry(paper core.PaperSize, orientation core.Orientation) core.PageGeometry {
	s := core.DefaultFormatSettings()
	s.PaperSize = paper
	s.Orientation = orientation
	return core.PageGeometryFor(s)
}

func TestSpooler_OpenUnknownOrInvalid(t *testing.T) {
	sp, _ := newTestSpooler(t, 100)
	doc := core.Document{Name: "job", Geometry: geometry(core.PaperA4, core.Portrait)}

	_, err := sp.Open(context.Background(), "nobody", doc)
	assert.ErrorIs(t, err, core.ErrPrinterUnavailable)

	_, err = sp.Open(context.Background(), "broken", doc)
	assert.ErrorIs(t, err, core.ErrPrinterUnavailable)
}

func TestSpooler_PrintWritesPage(t *testing.T) {
	sp, dir := newTestSpooler(t, 100)
	doc := core.Document{Name: "job-1", Geometry: geometry(core.PaperA4, core.Landscape)}

	session, err := sp.Open(context.Background(), "office", doc)
	require.NoError(t, err)

	var gotBounds core.Rect
	err = session.Print(context.Background(), func(s core.Surface, bounds core.Rect) error {
		gotBounds = bounds
		return s.DrawText("Hello", core.Font{Family: "Arial", Size: 12}, core.Color{}, bounds, core.TextFormat{})
	})
	require.NoError(t, err)
	assert.Equal(t, core.Rect{X: 50, Y: 50, Width: 1069, Height: 727}, gotBounds)

	f, err := os.Open(filepath.Join(dir, "job-1.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 1169, img.Bounds().Dx())
	assert.Equal(t, 827, img.Bounds().Dy())
}

func TestSpooler_PrintScalesWithDPI(t *testing.T) {
	sp, dir := newTestSpooler(t, 200)
	doc := core.Document{Name: "receipt", Geometry: geometry(core.PaperThermal58mm, core.Portrait)}

	session, err := sp.Open(context.Background(), "office", doc)
	require.NoError(t, err)
	require.NoError(t, session.Print(context.Background(), func(core.Surface, core.Rect) error { return nil }))

	f, err := os.Open(filepath.Join(dir, "receipt.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 440, cfg.Width)
	assert.Equal(t, 6552, cfg.Height)
}

func TestSpooler_PageErrorSkipsDelivery(t *testing.T) {
	sp, dir := newTestSpooler(t, 100)
	doc := core.Document{Name: "job-2", Geometry: geometry(core.PaperLetter, core.Portrait)}

	session, err := sp.Open(context.Background(), "office", doc)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = session.Print(context.Background(), func(core.Surface, core.Rect) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, filepath.Join(dir, "job-2.png"))
}

func TestSpooler_OpenCanceled(t *testing.T) {
	sp, _ := newTestSpooler(t, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sp.Open(ctx, "office", core.Document{Name: "x", Geometry: geometry(core.PaperA4, core.Portrait)})
	assert.ErrorIs(t, err, context.Canceled)
}
