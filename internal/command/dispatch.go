package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/rbright/casl/internal/action"
	"github.com/rbright/casl/internal/config"
	"github.com/rbright/casl/internal/protocol"
)

// Dispatcher fires one command for a matched phrase. Dispatch returns without
// waiting on the command; failures are logged against that invocation only.
type Dispatcher interface {
	Dispatch(ctx context.Context, text string)
}

type builder struct {
	exec   Executor
	logger *slog.Logger
}

func (b builder) build(spec config.CommandSpec, depth int) (Dispatcher, error) {
	switch t := spec.Transport.(type) {
	case config.NetTransport:
		return &NetDispatcher{transport: t, exec: b.exec, logger: b.logger}, nil
	case config.StdIOTransport:
		argv, err := config.ParseArgv(t.Command)
		if err != nil {
			return nil, err
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("stdio command is empty")
		}
		return &StdIODispatcher{argv: argv, timeoutMS: t.TimeoutMS, exec: b.exec, logger: b.logger}, nil
	case config.ShellTransport:
		re, err := config.CompilePrecondition(spec.Precondition)
		if err != nil {
			return nil, fmt.Errorf("invalid precondition: %w", err)
		}
		shell := strings.TrimSpace(t.Shell)
		if shell == "" {
			shell = action.DefaultShell
		}
		return &ShellDispatcher{shell: shell, template: t.Command, precondition: re, logger: b.logger}, nil
	case config.RedirectTransport:
		if depth >= config.MaxRedirectDepth {
			return nil, fmt.Errorf("%w (at %q)", config.ErrRedirectDepth, t.Path)
		}
		target, err := config.LoadCommandSpec(t.Path)
		if err != nil {
			return nil, err
		}
		inner, err := b.build(target, depth+1)
		if err != nil {
			return nil, fmt.Errorf("redirect %q: %w", t.Path, err)
		}
		return &RedirectDispatcher{path: t.Path, inner: inner}, nil
	case config.ActionTransport:
		if t.Action == nil {
			return nil, fmt.Errorf("action command has no action")
		}
		return &ActionDispatcher{action: t.Action, exec: b.exec, logger: b.logger}, nil
	case nil:
		return nil, fmt.Errorf("command transport is missing")
	default:
		return nil, fmt.Errorf("unsupported command transport %T", spec.Transport)
	}
}

// invocation tags one dispatch for log correlation.
func invocation(logger *slog.Logger, kind config.CommandKind) *slog.Logger {
	return logger.With("dispatch_id", uuid.NewString(), "transport", string(kind))
}

// act executes the response action unless the command reported an error.
func act(ctx context.Context, logger *slog.Logger, exec Executor, resp protocol.Response) {
	if resp.Error != nil {
		logger.Warn("command reported error", "error", resp.ErrorMessage())
		return
	}
	if exec == nil {
		return
	}
	if err := exec.Execute(ctx, resp.Action); err != nil {
		logger.Error("action failed", "action", string(resp.Action.Type()), "error", err.Error())
		return
	}
	logger.Debug("action executed", "action", string(resp.Action.Type()))
}

// ActionDispatcher executes an embedded action with no protocol round trip.
type ActionDispatcher struct {
	action protocol.Action
	exec   Executor
	logger *slog.Logger
}

func (d *ActionDispatcher) Dispatch(ctx context.Context, _ string) {
	ctx = context.WithoutCancel(ctx)
	log := invocation(d.logger, config.CommandAction)
	go act(ctx, log, d.exec, protocol.Response{Action: d.action})
}

// RedirectDispatcher forwards to the command loaded from a redirect target.
type RedirectDispatcher struct {
	path  string
	inner Dispatcher
}

func (d *RedirectDispatcher) Dispatch(ctx context.Context, text string) {
	d.inner.Dispatch(ctx, text)
}
