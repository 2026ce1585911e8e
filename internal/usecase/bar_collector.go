package usecase

import (
	"context"
	"time"

	"BarSync/internal/domain/models"
	drepo "BarSync/internal/domain/repository"
	mid "BarSync/internal/middleware"
)

const (
	// Consecutive dead sessions before the collector gives up. The budget
	// refunds as soon as a session delivers a bar.
	maxStreamRebuilds = 5

	streamRebuildDelay = 2 * time.Second
)

// BarCollector owns the live ingest lifecycle: it connects the provider
// stream, drains bar events into the pipeline so tail coverage stays fresh
// between syncs, and rebuilds the session when the stream drops. The stream's
// read channels close on error, so each session needs a fresh Read.
type BarCollector struct {
	stream  drepo.BarStream
	proc    *BarProcessor
	metrics drepo.Metrics
	pipe    *mid.BarPipeline
	symbols []string

	maxRebuilds  int
	rebuildDelay time.Duration
}

// NewBarCollector creates a new BarCollector instance.
func NewBarCollector(stream drepo.BarStream, proc *BarProcessor, metrics drepo.Metrics, pipe *mid.BarPipeline, symbols []string) *BarCollector {
	return &BarCollector{
		stream:       stream,
		proc:         proc,
		metrics:      metrics,
		pipe:         pipe,
		symbols:      symbols,
		maxRebuilds:  maxStreamRebuilds,
		rebuildDelay: streamRebuildDelay,
	}
}

// IsConnected reports whether the provider stream currently holds a
// connection.
func (c *BarCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *BarCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx, c.symbols); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	go c.run(ctx)
	return nil
}

// run drains one session at a time, reconnecting between them with a growing
// delay. After maxStreamRebuilds consecutive sessions without data the stream
// is considered dead and the collector stops.
func (c *BarCollector) run(ctx context.Context) {
	rebuilds := 0
	for {
		if c.drain(ctx) {
			rebuilds = 0
		}
		if ctx.Err() != nil {
			return
		}

		rebuilds++
		if rebuilds > c.maxRebuilds {
			c.metrics.RecordError("stream_abandoned")
			return
		}
		c.metrics.RecordError("stream")

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(rebuilds) * c.rebuildDelay):
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			continue
		}
	}
}

// drain consumes a single stream session until its channels close or the
// context ends. Reports whether any bar arrived.
func (c *BarCollector) drain(ctx context.Context) bool {
	barCh, errCh := c.stream.Read(ctx)
	sawData := false
	for {
		select {
		case <-ctx.Done():
			return sawData
		case err, ok := <-errCh:
			if !ok || err != nil {
				return sawData
			}
		case b, ok := <-barCh:
			if !ok {
				return sawData
			}
			if b == nil {
				continue
			}
			sawData = true
			c.ingest(ctx, b)
		}
	}
}

func (c *BarCollector) ingest(ctx context.Context, b *models.Bar) {
	if c.pipe != nil {
		_ = c.pipe.Process(ctx, b)
		return
	}
	_ = c.proc.Process(ctx, b)
}

// Shutdown stops the pipeline, closes the stream, and releases the processor.
func (c *BarCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	err := c.stream.Close()
	c.proc.Close()
	return err
}
