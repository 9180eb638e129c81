// Package printer keeps the set of installed printers and probes whether
// each one can currently take a job.
package printer

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orrn/printqueue/internal/config"
	"github.com/orrn/printqueue/internal/core"
)

const (
	StatusOnline   = "Online"
	StatusOffline  = "Offline"
	StatusDisabled = "Disabled"
)

const defaultProbeTimeout = 2 * time.Second

// allPaperSizes is reported for printers that do not restrict paper.
var allPaperSizes = []string{
	core.PaperA4.String(),
	core.PaperA3.String(),
	core.PaperA5.String(),
	core.PaperLetter.String(),
	core.PaperLegal.String(),
	core.PaperThermal58mm.String(),
	core.PaperThermal80mm.String(),
}

// Directory is safe for concurrent use. Devices can be replaced at runtime
// with SetDevices.
type Directory struct {
	mu      sync.RWMutex
	devices []config.PrinterDevice
	byName  map[string]int
	timeout time.Duration
	logger  zerolog.Logger
}

func NewDirectory(devices []config.PrinterDevice, probeTimeout time.Duration, logger zerolog.Logger) *Directory {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	d := &Directory{
		timeout: probeTimeout,
		logger:  logger,
	}
	d.SetDevices(devices)
	return d
}

// SetDevices swaps the installed printer set.
func (d *Directory) SetDevices(devices []config.PrinterDevice) {
	copied := make([]config.PrinterDevice, len(devices))
	copy(copied, devices)
	byName := make(map[string]int, len(copied))
	for i, dev := range copied {
		byName[dev.Name] = i
	}

	d.mu.Lock()
	d.devices = copied
	d.byName = byName
	d.mu.Unlock()

	d.logger.Info().Int("printers", len(copied)).Msg("printer set updated")
}

// List returns the names of all installed printers in configuration order.
func (d *Directory) List() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.devices))
	for _, dev := range d.devices {
		names = append(names, dev.Name)
	}
	return names
}

func (d *Directory) Exists(name string) bool {
	_, ok := d.Lookup(name)
	return ok
}

func (d *Directory) Lookup(name string) (config.PrinterDevice, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i, ok := d.byName[name]
	if !ok {
		return config.PrinterDevice{}, false
	}
	return d.devices[i], true
}

// IsPrinterValid reports whether name is installed, enabled and reachable
// right now. Each call probes the device again.
func (d *Directory) IsPrinterValid(name string) bool {
	dev, ok := d.Lookup(name)
	if !ok {
		return false
	}
	return d.status(dev) == StatusOnline
}

// GetPrinterInfo builds a fresh snapshot for name.
func (d *Directory) GetPrinterInfo(name string) (*core.PrinterInfo, bool) {
	dev, ok := d.Lookup(name)
	if !ok {
		return nil, false
	}
	return d.info(dev), true
}

func (d *Directory) ListInfo() []*core.PrinterInfo {
	d.mu.RLock()
	devices := make([]config.PrinterDevice, len(d.devices))
	copy(devices, d.devices)
	d.mu.RUnlock()

	infos := make([]*core.PrinterInfo, 0, len(devices))
	for _, dev := range devices {
		infos = append(infos, d.info(dev))
	}
	return infos
}

func (d *Directory) info(dev config.PrinterDevice) *core.PrinterInfo {
	status := d.status(dev)

	papers := dev.PaperSizes
	if len(papers) == 0 {
		papers = allPaperSizes
	}

	return &core.PrinterInfo{
		Name:                 dev.Name,
		IsOnline:             status == StatusOnline,
		IsValid:              status == StatusOnline,
		IsDefault:            dev.Default,
		IsNetworkPrinter:     dev.Kind == config.PrinterKindRaw,
		CanDuplex:            dev.Duplex,
		CanColor:             dev.Color,
		SupportedPaperSizes:  append([]string(nil), papers...),
		SupportedResolutions: []int{dev.DPI},
		Status:               status,
		MaximumPage:          dev.MaxPage,
		MinimumPage:          dev.MinPage,
	}
}

func (d *Directory) status(dev config.PrinterDevice) string {
	if dev.Disabled {
		return StatusDisabled
	}

	switch dev.Kind {
	case config.PrinterKindFile:
		fi, err := os.Stat(dev.Path)
		if err != nil || !fi.IsDir() {
			d.logger.Debug().Str("printer", dev.Name).Str("path", dev.Path).Msg("spool directory unavailable")
			return StatusOffline
		}
		return StatusOnline
	case config.PrinterKindRaw:
		conn, err := net.DialTimeout("tcp", dev.Address, d.timeout)
		if err != nil {
			d.logger.Debug().Err(err).Str("printer", dev.Name).Msg("printer unreachable")
			return StatusOffline
		}
		conn.Close()
		return StatusOnline
	default:
		return StatusOffline
	}
}
