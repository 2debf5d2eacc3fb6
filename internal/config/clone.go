package config

import (
	"slices"

	"github.com/rbright/casl/internal/protocol"
)

// Clone returns a deep copy of c for a worker context.
func (c Config) Clone() Config {
	out := c

	if c.Preprocessors != nil {
		out.Preprocessors = make([]PreprocessorSpec, len(c.Preprocessors))
		for i, spec := range c.Preprocessors {
			if remap, ok := spec.(RemapSpec); ok {
				remap.Mappings = slices.Clone(remap.Mappings)
				spec = remap
			}
			out.Preprocessors[i] = spec
		}
	}

	if c.Commands != nil {
		out.Commands = make([]CommandSpec, len(c.Commands))
		for i, cmd := range c.Commands {
			out.Commands[i] = cmd.Clone()
		}
	}

	return out
}

// Clone returns a deep copy of the command spec.
func (c CommandSpec) Clone() CommandSpec {
	if t, ok := c.Transport.(ActionTransport); ok {
		c.Transport = ActionTransport{Action: protocol.CloneAction(t.Action)}
	}
	return c
}
