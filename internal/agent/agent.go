// Package agent runs the acquisition loop: it reads transport frames from a
// meter interface, decodes them, and hands the readings of the configured
// sensors to the sinks.
package agent

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/d21d3q/gosml/internal/codec"
	"github.com/d21d3q/gosml/internal/config"
	"github.com/d21d3q/gosml/internal/dispatch"
	"github.com/d21d3q/gosml/internal/frame"
	"github.com/d21d3q/gosml/internal/obis"
	"github.com/d21d3q/gosml/internal/reading"
	"github.com/d21d3q/gosml/internal/serverid"
	"github.com/d21d3q/gosml/internal/transport"
)

// Sink receives every reading of a configured sensor.
type Sink interface {
	Name() string
	Write(ctx context.Context, r reading.Reading) error
}

type sinkFunc struct {
	name string
	fn   func(context.Context, reading.Reading) error
}

func (s sinkFunc) Name() string { return s.name }

func (s sinkFunc) Write(ctx context.Context, r reading.Reading) error { return s.fn(ctx, r) }

// SinkFunc adapts fn into a named Sink.
func SinkFunc(name string, fn func(context.Context, reading.Reading) error) Sink {
	return sinkFunc{name: name, fn: fn}
}

// Stats counts what the agent has processed so far.
type Stats struct {
	Frames   int
	Rejected int
	Records  int
	Readings int
}

type Agent struct {
	log       logrus.FieldLogger
	verifyCRC bool
	sinks     []Sink
	registry  dispatch.Registry
	now       func() time.Time

	mu    sync.Mutex
	batch []reading.Reading
	stats Stats
}

// New registers one listener per configured sensor.
func New(cfg config.Config, log logrus.FieldLogger, sinks ...Sink) *Agent {
	a := &Agent{
		log:       log,
		verifyCRC: cfg.Transport.Verify(),
		sinks:     sinks,
		now:       time.Now,
	}
	for _, s := range cfg.Sensors {
		a.registry.Register(dispatch.Filter{ServerID: s.Meter, Code: s.Code}, a.listener(s, cfg.Table))
	}
	return a
}

func (a *Agent) listener(s config.Sensor, table serverid.Table) dispatch.Listener {
	return func(rec obis.Record) {
		r := reading.New(rec, s.ValueFormat, table)
		r.Sensor = s.Name
		r.Time = a.now()
		a.batch = append(a.batch, r)
	}
}

// Run reads frames from src until it is exhausted or ctx is done. Frames
// that fail framing or checksum checks are logged and skipped.
func (a *Agent) Run(ctx context.Context, src io.Reader) error {
	frames := transport.NewReader(src, a.verifyCRC)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		file, err := frames.Next()
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, transport.ErrFraming), errors.Is(err, transport.ErrChecksum):
			a.mu.Lock()
			a.stats.Rejected++
			a.mu.Unlock()
			a.log.WithError(err).Warn("frame rejected")
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		a.Deliver(ctx, a.Handle(file))
	}
}

// Handle decodes one SML file and returns the readings of the configured
// sensors it carries. Decoding problems are logged; whatever could be
// decoded is still used.
func (a *Agent) Handle(file []byte) []reading.Reading {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Frames++
	log := a.log.WithFields(logrus.Fields{"frame": a.stats.Frames, "bytes": len(file)})

	dg, err := frame.Decode(file)
	if err != nil {
		log.WithError(err).Warn("datagram truncated")
		log.Debugf("frame dump: %s", codec.HexRepr(file))
	}
	records, err := obis.Extract(dg)
	if err != nil {
		log.WithError(err).Debug("skipped malformed entries")
	}
	a.stats.Records += len(records)

	a.batch = nil
	a.registry.Dispatch(records)
	out := a.batch
	a.batch = nil
	a.stats.Readings += len(out)

	log.WithFields(logrus.Fields{"messages": len(dg.Messages), "records": len(records), "readings": len(out)}).Debug("frame decoded")
	return out
}

// Deliver writes every reading to every sink. Sink failures are logged.
func (a *Agent) Deliver(ctx context.Context, readings []reading.Reading) {
	for _, r := range readings {
		for _, sink := range a.sinks {
			if err := sink.Write(ctx, r); err != nil {
				a.log.WithFields(logrus.Fields{"sensor": r.Sensor, "sink": sink.Name()}).WithError(err).Warn("sink write failed")
			}
		}
	}
}

func (a *Agent) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// LogSink logs every reading at info level.
func LogSink(log logrus.FieldLogger) Sink {
	return SinkFunc("log", func(_ context.Context, r reading.Reading) error {
		fields := logrus.Fields{"sensor": r.Sensor, "code": r.Code, "server_id": r.ServerID}
		if r.Value != nil {
			fields["value"] = *r.Value
			fields["unit"] = r.Unit
		} else {
			fields["text"] = r.Text
		}
		log.WithFields(fields).Info("reading")
		return nil
	})
}
