package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
)

const (
	// SampleRate is the capture rate in Hz.
	SampleRate = 16000

	fragmentBytes = 1280 // 20ms @ 16kHz mono float32
	queueChunks   = 256
)

// ConvertSamples scales normalized float samples to signed 16-bit PCM,
// clamping anything outside [-1, 1].
func ConvertSamples(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, v := range in {
		s := float64(v) * math.MaxInt16
		switch {
		case math.IsNaN(s):
			out[i] = 0
		case s >= math.MaxInt16:
			out[i] = math.MaxInt16
		case s <= math.MinInt16:
			out[i] = math.MinInt16
		default:
			out[i] = int16(s)
		}
	}
	return out
}

// Capture streams converted sample chunks from one selected Pulse source.
// The Pulse callback never blocks; chunks that do not fit the queue are dropped.
type Capture struct {
	device Device
	logger *slog.Logger

	client *pulse.Client
	stream *pulse.RecordStream

	samples chan []int16
	stopCh  chan struct{}

	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup

	captured atomic.Int64
	dropped  atomic.Int64
}

// StartCapture creates and starts a 16kHz mono float32 record stream.
func StartCapture(ctx context.Context, selected Device, logger *slog.Logger) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := newCapture(selected, logger)
	capture.client = client

	stream, err := client.NewRecord(
		pulse.Float32Writer(capture.onSamples),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(fragmentBytes),
		pulse.RecordMediaName("casl listening"),
	)
	if err != nil {
		capture.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		_ = capture.Stop()
	}()

	return capture, nil
}

func newCapture(device Device, logger *slog.Logger) *Capture {
	return &Capture{
		device:  device,
		logger:  logger,
		samples: make(chan []int16, queueChunks),
		stopCh:  make(chan struct{}),
	}
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// Samples returns converted chunks. The channel closes after Stop.
func (c *Capture) Samples() <-chan []int16 {
	return c.samples
}

// SamplesCaptured reports total samples accepted onto the queue.
func (c *Capture) SamplesCaptured() int64 {
	return c.captured.Load()
}

// SamplesDropped reports samples discarded because the queue was full.
func (c *Capture) SamplesDropped() int64 {
	return c.dropped.Load()
}

// Stop halts the stream and closes Samples exactly once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()
	close(c.samples)

	if c.logger != nil {
		c.logger.Info("audio capture stopped",
			"device", c.device.ID,
			"samples", c.captured.Load(),
			"dropped", c.dropped.Load(),
		)
	}
	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onSamples receives float frames from Pulse and enqueues one converted chunk.
func (c *Capture) onSamples(buffer []float32) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as stopped so Stop's Wait cannot race it.
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	chunk := ConvertSamples(buffer)
	select {
	case c.samples <- chunk:
		c.captured.Add(int64(len(chunk)))
	default:
		c.dropped.Add(int64(len(chunk)))
	}
	return len(buffer), nil
}
