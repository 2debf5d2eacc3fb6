// Package action resolves command actions into local effects.
package action

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/rbright/casl/internal/protocol"
)

// DefaultShell interprets Shell actions that name no interpreter.
const DefaultShell = "/bin/sh"

// Executor applies actions synchronously in the calling goroutine.
type Executor struct {
	registry *Registry
	logger   *slog.Logger

	mu  sync.Mutex
	out io.Writer
}

// NewExecutor builds an executor writing builtin output to out (stdout when nil).
func NewExecutor(out io.Writer, registry *Registry, logger *slog.Logger) *Executor {
	if out == nil {
		out = os.Stdout
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Executor{registry: registry, logger: logger, out: out}
}

// Execute performs one action. Unknown CASL operations are ignored; a shell
// that fails to start is reported to the caller.
func (e *Executor) Execute(_ context.Context, action protocol.Action) error {
	switch a := action.(type) {
	case protocol.CustomAction:
		return nil
	case protocol.ShellAction:
		return Spawn(a.Shell, a.Command)
	case protocol.CASLAction:
		op, ok := e.registry.Lookup(a.Operation)
		if !ok {
			e.logDebug("unknown CASL operation ignored", "operation", a.Operation)
			return nil
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		op(e.out, a.Parameters)
		return nil
	case nil:
		return fmt.Errorf("execute action: nil action")
	default:
		return fmt.Errorf("execute action: unsupported %T", action)
	}
}

// Spawn starts `shell -c command` in its own process group with no standard
// I/O attached and reaps it in the background.
func Spawn(shell string, command string) error {
	if shell == "" {
		shell = DefaultShell
	}

	cmd := exec.Command(shell, "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s command %q: %w", shell, command, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func (e *Executor) logDebug(msg string, args ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(msg, args...)
}
