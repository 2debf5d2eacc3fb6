package command

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/rbright/casl/internal/action"
	"github.com/rbright/casl/internal/config"
)

// ShellDispatcher expands precondition captures into a command template and
// runs it detached through a shell.
type ShellDispatcher struct {
	shell        string
	template     string
	precondition *regexp.Regexp
	logger       *slog.Logger
}

func (d *ShellDispatcher) Dispatch(_ context.Context, text string) {
	log := invocation(d.logger, config.CommandShell)

	command, ok := d.expand(text)
	if !ok {
		log.Warn("shell precondition did not match", "text", text)
		return
	}

	log.Info("running shell command", "shell", d.shell, "command", command)
	if err := action.Spawn(d.shell, command); err != nil {
		log.Error("shell command failed to start", "error", err.Error())
	}
}

// expand substitutes $1 / ${name} references with precondition captures.
func (d *ShellDispatcher) expand(text string) (string, bool) {
	match := d.precondition.FindStringSubmatchIndex(text)
	if match == nil {
		return "", false
	}
	return string(d.precondition.ExpandString(nil, d.template, text, match)), true
}
