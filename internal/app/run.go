package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rbright/casl/internal/action"
	"github.com/rbright/casl/internal/audio"
	"github.com/rbright/casl/internal/command"
	"github.com/rbright/casl/internal/config"
	"github.com/rbright/casl/internal/decoder"
	"github.com/rbright/casl/internal/fsm"
	"github.com/rbright/casl/internal/ipc"
	"github.com/rbright/casl/internal/pipeline"
	"github.com/rbright/casl/internal/preprocess"
	"golang.org/x/sync/errgroup"
)

var (
	errStopRequested = errors.New("stop requested")
	errAudioClosed   = errors.New("audio source closed")
)

// Source delivers converted audio chunks.
type Source interface {
	Samples() <-chan []int16
	Device() audio.Device
	Close()
}

// ModelOpener connects the decoder used for every window.
type ModelOpener func(ctx context.Context, cfg config.Config) (decoder.Model, io.Closer, error)

// AudioOpener starts capture from the configured input.
type AudioOpener func(ctx context.Context, cfg config.Config, logger *slog.Logger) (Source, error)

func openGRPCModel(ctx context.Context, cfg config.Config) (decoder.Model, io.Closer, error) {
	model, err := decoder.DialGRPC(ctx, decoder.GRPCConfig{
		Endpoint:    cfg.Decoder.Endpoint,
		Method:      cfg.Decoder.Method,
		DialTimeout: time.Duration(cfg.Decoder.DialTimeoutMS) * time.Millisecond,
		ModelPath:   cfg.Model,
		ScorerPath:  cfg.Scorer,
	})
	if err != nil {
		return nil, nil, err
	}
	return model, model, nil
}

func openPulseCapture(ctx context.Context, cfg config.Config, logger *slog.Logger) (Source, error) {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" {
		logger.Warn("audio fallback", "warning", selection.Warning)
	}
	capture, err := audio.StartCapture(ctx, selection.Device, logger)
	if err != nil {
		return nil, err
	}
	return capture, nil
}

func (r Runner) commandRun(ctx context.Context, loaded config.Loaded, logger *slog.Logger) int {
	listener, socketPath, err := r.acquireControlSocket(ctx, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if listener != nil {
		defer func() {
			_ = listener.Close()
			_ = os.Remove(socketPath)
		}()
	}

	cfg := loaded.Config.Clone()

	chain, err := preprocess.Build(cfg.Preprocessors)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: build preprocessors: %v\n", err)
		return 1
	}
	executor := action.NewExecutor(r.Stdout, action.NewRegistry(), logger)
	router, err := command.NewRouter(cfg.Clone(), executor, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: build commands: %v\n", err)
		return 1
	}

	openModel := r.OpenModel
	if openModel == nil {
		openModel = openGRPCModel
	}
	model, closer, err := openModel(ctx, cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("open decoder failed", "error", err.Error())
		return 1
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	runCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	openAudio := r.OpenAudio
	if openAudio == nil {
		openAudio = openPulseCapture
	}
	source, err := openAudio(runCtx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("open audio failed", "error", err.Error())
		return 1
	}
	defer source.Close()

	driver := pipeline.NewDriver(cfg, model, chain, router, logger)
	ctl := newController(driver, source.Device().ID, stop, logger)

	logger.Info("listening",
		"device", source.Device().ID,
		"commands", router.Len(),
		"preprocessors", len(chain),
		"decoder", cfg.Decoder.Endpoint,
	)

	ctl.fire(fsm.EventReady)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer stop(errAudioClosed)
		return driver.Run(gctx, source.Samples())
	})
	if listener != nil {
		g.Go(func() error {
			return ipc.Serve(gctx, listener, ctl)
		})
	}
	err = g.Wait()
	if err != nil {
		ctl.fire(fsm.EventFail)
	} else {
		ctl.fire(fsm.EventDrained)
	}

	stats := driver.Stats()
	logger.Info("stopped",
		"state", ctl.State(),
		"reason", context.Cause(runCtx).Error(),
		"windows", stats.Windows,
		"decode_errors", stats.DecodeErrors,
		"phrases", stats.Phrases,
		"dispatches", stats.Dispatches,
	)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// acquireControlSocket claims the single-instance socket. A missing runtime
// dir disables stop/status rather than failing the run.
func (r Runner) acquireControlSocket(ctx context.Context, logger *slog.Logger) (net.Listener, string, error) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v; stop and status are unavailable\n", err)
		logger.Warn("control socket disabled", "error", err.Error())
		return nil, "", nil
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, func(context.Context) error {
		logger.Warn("removed stale control socket", "path", socketPath)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return listener, socketPath, nil
}

// controller answers control socket requests for one run.
type controller struct {
	driver  *pipeline.Driver
	device  string
	started time.Time
	stop    context.CancelCauseFunc
	logger  *slog.Logger

	mu    sync.Mutex
	state fsm.State
}

func newController(driver *pipeline.Driver, device string, stop context.CancelCauseFunc, logger *slog.Logger) *controller {
	return &controller{
		driver:  driver,
		device:  device,
		started: time.Now(),
		stop:    stop,
		logger:  logger,
		state:   fsm.StateStarting,
	}
}

func (c *controller) fire(event fsm.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		c.logger.Debug("ignored lifecycle event", "error", err.Error())
		return
	}
	c.state = next
}

func (c *controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		s := c.driver.Stats()
		return ipc.Response{OK: true, State: string(c.State()), Stats: &ipc.Stats{
			Device:       c.device,
			UptimeMS:     time.Since(c.started).Milliseconds(),
			Windows:      s.Windows,
			DecodeErrors: s.DecodeErrors,
			Phrases:      s.Phrases,
			Dispatches:   s.Dispatches,
		}}
	case ipc.CommandStop:
		c.fire(fsm.EventStop)
		c.stop(errStopRequested)
		return ipc.Response{OK: true, State: string(c.State()), Message: "stopping"}
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unsupported command %q", req.Command)}
	}
}
