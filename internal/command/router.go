// Package command matches phrases against configured preconditions and fires
// the matching transports.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/rbright/casl/internal/config"
	"github.com/rbright/casl/internal/protocol"
)

// Executor applies an action returned by a command.
type Executor interface {
	Execute(ctx context.Context, action protocol.Action) error
}

type route struct {
	index        int
	kind         config.CommandKind
	precondition *regexp.Regexp
	useRaw       bool
	dispatcher   Dispatcher
}

// Router holds one compiled route per configured command, in declaration order.
type Router struct {
	routes []route
	logger *slog.Logger
}

// NewRouter compiles preconditions and builds dispatchers. Redirect targets
// are read here and never again.
func NewRouter(cfg config.Config, exec Executor, logger *slog.Logger) (*Router, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := builder{exec: exec, logger: logger}

	routes := make([]route, 0, len(cfg.Commands))
	for i, spec := range cfg.Commands {
		re, err := config.CompilePrecondition(spec.Precondition)
		if err != nil {
			return nil, fmt.Errorf("commands[%d]: invalid precondition: %w", i, err)
		}
		d, err := b.build(spec, 0)
		if err != nil {
			return nil, fmt.Errorf("commands[%d]: %w", i, err)
		}
		routes = append(routes, route{
			index:        i,
			kind:         spec.Transport.Kind(),
			precondition: re,
			useRaw:       spec.UseRawText,
			dispatcher:   d,
		})
	}
	return &Router{routes: routes, logger: logger}, nil
}

// Len reports the number of routes.
func (r *Router) Len() int {
	return len(r.routes)
}

// Route fires every route whose precondition matches its selected text and
// returns how many fired. It never waits for a dispatch to finish.
func (r *Router) Route(ctx context.Context, raw string, processed string) int {
	fired := 0
	for _, rt := range r.routes {
		text := processed
		if rt.useRaw {
			text = raw
		}
		if !rt.precondition.MatchString(text) {
			continue
		}
		r.logger.Debug("command matched", "command", rt.index, "transport", string(rt.kind), "text", text)
		rt.dispatcher.Dispatch(ctx, text)
		fired++
	}
	return fired
}
