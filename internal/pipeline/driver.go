// Package pipeline drives captured audio through decoding, segmentation, and
// command routing.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/rbright/casl/internal/config"
	"github.com/rbright/casl/internal/decoder"
	"github.com/rbright/casl/internal/segment"
)

// Router fires commands for one phrase.
type Router interface {
	Route(ctx context.Context, raw string, processed string) int
}

// Stats are cumulative driver counters.
type Stats struct {
	Windows      int64
	DecodeErrors int64
	Phrases      int64
	Dispatches   int64
	SamplesFed   int64
	CarrySamples int64
}

// Driver owns the sample buffer and the live decoder stream. Run is single
// threaded; Stats may be read concurrently.
type Driver struct {
	carryover int
	refresh   int
	gapMS     uint32

	model  decoder.Model
	chain  segment.Processor
	router Router
	logger *slog.Logger

	windows      atomic.Int64
	decodeErrors atomic.Int64
	phrases      atomic.Int64
	dispatches   atomic.Int64
	samplesFed   atomic.Int64
	carrySamples atomic.Int64
}

// NewDriver builds a driver from runtime config and its collaborators.
func NewDriver(cfg config.Config, model decoder.Model, chain segment.Processor, router Router, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		carryover: cfg.CarryoverBufferSize,
		refresh:   cfg.RefreshBufferThreshold,
		gapMS:     cfg.GapDetectionMS,
		model:     model,
		chain:     chain,
		router:    router,
		logger:    logger,
	}
}

// Stats returns a snapshot of the driver counters.
func (d *Driver) Stats() Stats {
	return Stats{
		Windows:      d.windows.Load(),
		DecodeErrors: d.decodeErrors.Load(),
		Phrases:      d.phrases.Load(),
		Dispatches:   d.dispatches.Load(),
		SamplesFed:   d.samplesFed.Load(),
		CarrySamples: d.carrySamples.Load(),
	}
}

// Run consumes samples until ctx is cancelled or samples is closed. Either
// ends the run cleanly; only failing to open a decoder stream is an error.
func (d *Driver) Run(ctx context.Context, samples <-chan []int16) error {
	if d.refresh <= 0 {
		return fmt.Errorf("refresh threshold must be > 0")
	}

	stream, err := d.model.NewStream(ctx)
	if err != nil {
		return fmt.Errorf("open decoder stream: %w", err)
	}

	buffer := make([]int16, 0, d.refresh)
	lastCarryover := 0

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("pipeline stopping", "reason", context.Cause(ctx).Error())
			return nil
		case chunk, ok := <-samples:
			if !ok {
				d.logger.Info("pipeline stopping", "reason", "audio closed")
				return nil
			}
			start := len(buffer)
			buffer = append(buffer, chunk...)
			buffer = drain(samples, buffer, d.refresh-len(chunk))
			stream.Feed(buffer[start:])
			d.samplesFed.Add(int64(len(buffer) - start))
		}

		if len(buffer)-lastCarryover < d.refresh {
			continue
		}

		next := d.refreshWindow(ctx, stream, buffer)
		if ctx.Err() != nil {
			continue
		}
		stream, err = d.model.NewStream(ctx)
		if err != nil {
			return fmt.Errorf("open decoder stream: %w", err)
		}
		stream.Feed(next)

		buffer = append(make([]int16, 0, max(d.refresh, len(next))), next...)
		lastCarryover = len(buffer)
		d.carrySamples.Store(int64(lastCarryover))
	}
}

// drain appends queued chunks without blocking until budget samples are taken.
func drain(samples <-chan []int16, buffer []int16, budget int) []int16 {
	for budget > 0 {
		select {
		case chunk, ok := <-samples:
			if !ok {
				return buffer
			}
			buffer = append(buffer, chunk...)
			budget -= len(chunk)
		default:
			return buffer
		}
	}
	return buffer
}

// refreshWindow decodes the spent stream, routes a complete phrase, and
// returns the samples that seed the next window.
func (d *Driver) refreshWindow(ctx context.Context, stream decoder.Stream, buffer []int16) []int16 {
	d.windows.Add(1)
	lengthMS := uint32(len(buffer) / decoder.SamplesPerMS)

	tokens, err := stream.Finish(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return buffer
		}
		d.decodeErrors.Add(1)
		d.logger.Error("decode failed; keeping fixed carryover", "error", err.Error(), "window_ms", lengthMS)
		return segment.Carryover(buffer, segment.Result{SafeToRefresh: true}, d.carryover, decoder.SampleRate)
	}

	res := segment.Segment(tokens, lengthMS, d.gapMS, d.chain)
	d.logger.Debug("window decoded",
		"window_ms", lengthMS,
		"tokens", len(tokens),
		"safe_to_refresh", res.SafeToRefresh,
		"last_gap_start_ms", res.LastGapStartMS,
		"last_gap_end_ms", res.LastGapEndMS,
	)

	if res.SafeToRefresh && strings.TrimSpace(res.PhraseRaw) != "" {
		d.phrases.Add(1)
		d.logger.Debug("phrase heard", "raw", res.PhraseRaw, "phrase", res.Phrase)
		if d.router != nil {
			fired := d.router.Route(ctx, res.PhraseRaw, res.Phrase)
			d.dispatches.Add(int64(fired))
		}
	}

	return segment.Carryover(buffer, res, d.carryover, decoder.SampleRate)
}
