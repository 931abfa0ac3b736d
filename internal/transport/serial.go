package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// SerialConfig describes the optical or RS485 interface a meter pushes on.
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// OpenSerial opens the meter interface as 8N1.
func OpenSerial(cfg SerialConfig) (io.ReadCloser, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	return port, nil
}

// Polling adapts a port whose reads time out with no data into a reader
// that blocks until data arrives or ctx is done.
func Polling(ctx context.Context, r io.Reader) io.Reader {
	return &pollingReader{ctx: ctx, r: r}
}

type pollingReader struct {
	ctx context.Context
	r   io.Reader
}

func (p *pollingReader) Read(b []byte) (int, error) {
	for {
		if err := p.ctx.Err(); err != nil {
			return 0, err
		}
		n, err := p.r.Read(b)
		if n > 0 {
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
	}
}
