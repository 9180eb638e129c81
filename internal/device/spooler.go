// Package device renders pages to raster images and delivers them to the
// configured printers.
package device

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"time"

	"github.com/rs/zerolog"

	"github.com/orrn/printqueue/internal/config"
	"github.com/orrn/printqueue/internal/core"
)

// PrinterLookup resolves printer names to their definitions.
type PrinterLookup interface {
	Lookup(name string) (config.PrinterDevice, bool)
	IsPrinterValid(name string) bool
}

// Spooler opens print sessions against printers known to a PrinterLookup.
type Spooler struct {
	printers PrinterLookup
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewSpooler(printers PrinterLookup, connectionTimeout time.Duration, logger zerolog.Logger) *Spooler {
	return &Spooler{
		printers: printers,
		timeout:  connectionTimeout,
		logger:   logger,
	}
}

// Open confirms the printer can take a job and prepares a session for doc.
func (s *Spooler) Open(ctx context.Context, printerName string, doc core.Document) (core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dev, ok := s.printers.Lookup(printerName)
	if !ok || !s.printers.IsPrinterValid(printerName) {
		return nil, fmt.Errorf("%w: %s", core.ErrPrinterUnavailable, printerName)
	}

	sink, err := NewSink(dev, s.timeout)
	if err != nil {
		return nil, err
	}

	return &session{
		device: dev,
		doc:    doc,
		sink:   sink,
		logger: s.logger.With().Str("printer", printerName).Str("document", doc.Name).Logger(),
	}, nil
}

type session struct {
	device config.PrinterDevice
	doc    core.Document
	sink   Sink
	logger zerolog.Logger
}

// Print renders the single page and blocks until the sink has accepted it.
func (s *session) Print(ctx context.Context, page core.PageFunc) error {
	width, height := s.doc.Geometry.PageSize()
	surface := NewRasterSurface(width, height, s.device.DPI)
	defer surface.Close()

	s.logger.Info().
		Str("paper", s.doc.Geometry.Paper.Name).
		Bool("landscape", s.doc.Geometry.Landscape).
		Int("dpi", s.device.DPI).
		Msg("starting print")

	if err := page(surface, s.doc.Geometry.MarginBounds()); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface.Image()); err != nil {
		return fmt.Errorf("failed to encode page: %w", err)
	}

	if err := s.sink.Deliver(ctx, s.doc.Name, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to deliver page: %w", err)
	}

	s.logger.Info().Int("bytes", buf.Len()).Msg("print finished")
	return nil
}
