// Package doctor runs runtime readiness diagnostics for config, commands,
// audio, and the decoder service.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/casl/internal/action"
	"github.com/rbright/casl/internal/audio"
	"github.com/rbright/casl/internal/config"
	"github.com/rbright/casl/internal/decoder"
	"github.com/rbright/casl/internal/protocol"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q (%d commands)", cfg.Path, len(cfg.Config.Commands)),
	}}

	for _, w := range cfg.Warnings {
		checks = append(checks, Check{Name: "config.warning", Pass: true, Message: w.Message})
	}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "control socket directory is set", "XDG_RUNTIME_DIR is empty; stop/status will be unavailable"))

	checks = append(checks, checkCommands(cfg.Config.Commands)...)
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkDecoderReady(ctx, cfg.Config.Decoder))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommands verifies every executable the configured commands would spawn.
func checkCommands(commands []config.CommandSpec) []Check {
	seen := map[string]bool{}
	checks := []Check{}
	add := func(bin string, name string) {
		if seen[bin] {
			return
		}
		seen[bin] = true
		checks = append(checks, checkBinary(bin, name))
	}

	var visit func(spec config.CommandSpec, label string, depth int)
	visit = func(spec config.CommandSpec, label string, depth int) {
		switch t := spec.Transport.(type) {
		case config.StdIOTransport:
			argv, err := config.ParseArgv(t.Command)
			if err != nil || len(argv) == 0 {
				checks = append(checks, Check{Name: label, Pass: false, Message: "stdio command is empty or unparsable"})
				return
			}
			add(argv[0], label+" stdio command is available")
		case config.ShellTransport:
			add(shellOrDefault(t.Shell), label+" shell is available")
		case config.ActionTransport:
			if a, ok := t.Action.(protocol.ShellAction); ok {
				add(shellOrDefault(a.Shell), label+" action shell is available")
			}
		case config.RedirectTransport:
			if depth >= config.MaxRedirectDepth {
				return
			}
			target, err := config.LoadCommandSpec(t.Path)
			if err != nil {
				checks = append(checks, Check{Name: label, Pass: false, Message: err.Error()})
				return
			}
			visit(target, label, depth+1)
		}
	}

	for i, spec := range commands {
		visit(spec, fmt.Sprintf("commands[%d]", i), 0)
	}
	return checks
}

func shellOrDefault(shell string) string {
	if strings.TrimSpace(shell) == "" {
		return action.DefaultShell
	}
	return shell
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkDecoderReady dials the decoder service and waits for gRPC readiness.
func checkDecoderReady(ctx context.Context, cfg config.DecoderConfig) Check {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return Check{Name: "decoder.ready", Pass: false, Message: "decoder.endpoint is empty"}
	}
	timeout := time.Duration(cfg.DialTimeoutMS) * time.Millisecond
	if err := decoder.Probe(ctx, endpoint, timeout); err != nil {
		return Check{Name: "decoder.ready", Pass: false, Message: err.Error()}
	}
	return Check{Name: "decoder.ready", Pass: true, Message: fmt.Sprintf("ready at %s", endpoint)}
}
