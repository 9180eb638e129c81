package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/orrn/printqueue/internal/config"
)

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrUnsupportedKind  = errors.New("unsupported printer kind")
)

const defaultReadWriteTimeout = 10 * time.Second

// Sink hands a rendered document to the physical or virtual printer.
type Sink interface {
	Deliver(ctx context.Context, name string, data []byte) error
}

func NewSink(dev config.PrinterDevice, timeout time.Duration) (Sink, error) {
	switch dev.Kind {
	case config.PrinterKindFile:
		return &FileSink{Dir: dev.Path}, nil
	case config.PrinterKindRaw:
		if timeout == 0 {
			timeout = defaultReadWriteTimeout
		}
		return &RawSink{Address: dev.Address, Timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, dev.Kind)
	}
}

// FileSink writes each document to Dir/<name>.png. The file appears
// atomically once complete.
type FileSink struct {
	Dir string
}

func (s *FileSink) Deliver(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.Dir, ".spool-*")
	if err != nil {
		return fmt.Errorf("failed to create spool file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write spool file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close spool file: %w", err)
	}

	target := filepath.Join(s.Dir, name+".png")
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to publish spool file: %w", err)
	}
	return nil
}

// RawSink streams documents to a socket printer (JetDirect style, port 9100).
type RawSink struct {
	Address string
	Timeout time.Duration
}

func (s *RawSink) Deliver(ctx context.Context, name string, data []byte) error {
	dialer := net.Dialer{Timeout: s.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(s.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}
