package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidPrinter = errors.New("invalid printer")
	ErrDeviceSession  = errors.New("device session failure")
	ErrRenderFailure  = errors.New("render failure")
)

type Executor struct {
	directory PrinterDirectory
	device    Device
	renderer  *Renderer
	logger    zerolog.Logger
}

func NewExecutor(directory PrinterDirectory, device Device, renderer *Renderer, logger zerolog.Logger) *Executor {
	return &Executor{
		directory: directory,
		device:    device,
		renderer:  renderer,
		logger:    logger,
	}
}

// Execute prints one job and blocks until the device is done with it.
// The returned error wraps ErrInvalidPrinter, ErrDeviceSession or
// ErrRenderFailure.
func (e *Executor) Execute(ctx context.Context, job *PrintJob) error {
	log := e.logger.With().Str("job_id", job.ID).Str("printer", job.PrinterName).Logger()
	log.Info().Msg("processing print job")

	if !e.directory.IsPrinterValid(job.PrinterName) {
		log.Error().Msg("printer is not valid for job")
		return fmt.Errorf("%w: %s", ErrInvalidPrinter, job.PrinterName)
	}

	doc := Document{
		Name:     job.ID,
		Geometry: PageGeometryFor(job.Settings),
	}

	session, err := e.device.Open(ctx, job.PrinterName, doc)
	if err != nil {
		log.Error().Err(err).Msg("failed to open device session")
		if errors.Is(err, ErrPrinterUnavailable) {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPrinter, job.PrinterName, err)
		}
		return fmt.Errorf("%w: %v", ErrDeviceSession, err)
	}

	start := time.Now()
	var renderErr error
	err = session.Print(ctx, func(surface Surface, bounds Rect) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic while rendering: %v", r)
				renderErr = err
			}
		}()
		log.Debug().
			Float64("width", bounds.Width).
			Float64("height", bounds.Height).
			Msg("rendering page")
		if err := e.renderer.Render(surface, bounds, job.Text, job.Settings); err != nil {
			renderErr = err
			return err
		}
		return nil
	})
	if renderErr != nil {
		log.Error().Err(renderErr).Msg("failed to render page")
		return fmt.Errorf("%w: %v", ErrRenderFailure, renderErr)
	}
	if err != nil {
		log.Error().Err(err).Msg("device session failed")
		return fmt.Errorf("%w: %v", ErrDeviceSession, err)
	}

	log.Info().Dur("duration", time.Since(start)).Msg("print job completed")
	return nil
}
