package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rbright/casl/internal/protocol"
)

// NetTransport exchanges one datagram request/response with a remote responder.
type NetTransport struct {
	SrcAddr   string `json:"src_addr,omitempty"`
	SrcPort   int    `json:"src_port"`
	DstAddr   string `json:"dst_addr"`
	DstPort   int    `json:"dst_port"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

// StdIOTransport exchanges one line request/response with a spawned process.
type StdIOTransport struct {
	Command   string `json:"command"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

// ShellTransport runs a command template through a shell interpreter.
type ShellTransport struct {
	Shell   string `json:"shell,omitempty"`
	Command string `json:"command"`
}

// RedirectTransport points at a file holding a complete command spec.
type RedirectTransport struct {
	Path string `json:"path"`
}

// ActionTransport runs an embedded action with no protocol round trip.
type ActionTransport struct {
	Action protocol.Action
}

func (NetTransport) Kind() CommandKind      { return CommandNet }
func (StdIOTransport) Kind() CommandKind    { return CommandStdIO }
func (ShellTransport) Kind() CommandKind    { return CommandShell }
func (RedirectTransport) Kind() CommandKind { return CommandRedirect }
func (ActionTransport) Kind() CommandKind   { return CommandAction }

func (NetTransport) isTransport()      {}
func (StdIOTransport) isTransport()    {}
func (ShellTransport) isTransport()    {}
func (RedirectTransport) isTransport() {}
func (ActionTransport) isTransport()   {}

type commandEnvelope struct {
	Type         CommandKind `json:"type"`
	Precondition string      `json:"precondition"`
	UseRawText   bool        `json:"use_raw_text"`
}

// UnmarshalJSON decodes the shared envelope and then the selected variant.
func (c *CommandSpec) UnmarshalJSON(data []byte) error {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	transport, err := decodeTransport(env.Type, data)
	if err != nil {
		return err
	}

	*c = CommandSpec{
		Precondition: env.Precondition,
		UseRawText:   env.UseRawText,
		Transport:    transport,
	}
	return nil
}

func decodeTransport(kind CommandKind, data []byte) (Transport, error) {
	switch kind {
	case CommandNet:
		var t NetTransport
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		if t.DstAddr == "" || t.DstPort <= 0 {
			return nil, errors.New("net command requires dst_addr and dst_port")
		}
		return t, nil
	case CommandStdIO:
		var t StdIOTransport
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		if t.Command == "" {
			return nil, errors.New("stdio command requires command")
		}
		return t, nil
	case CommandShell:
		var t ShellTransport
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		if t.Command == "" {
			return nil, errors.New("shell command requires command")
		}
		return t, nil
	case CommandRedirect:
		var t RedirectTransport
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		if t.Path == "" {
			return nil, errors.New("redirect command requires path")
		}
		return t, nil
	case CommandAction:
		var wire struct {
			Action json.RawMessage `json:"action"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, err
		}
		if len(wire.Action) == 0 {
			return nil, errors.New("action command requires action")
		}
		action, err := protocol.DecodeAction(wire.Action)
		if err != nil {
			return nil, err
		}
		return ActionTransport{Action: action}, nil
	case "":
		return nil, errors.New("command type is missing")
	default:
		return nil, fmt.Errorf("unknown command type %q", kind)
	}
}

// preprocessorList decodes the tagged preprocessor array.
type preprocessorList []PreprocessorSpec

func (l *preprocessorList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make([]PreprocessorSpec, 0, len(raw))
	for i, item := range raw {
		spec, err := decodePreprocessor(item)
		if err != nil {
			return fmt.Errorf("preprocessors[%d]: %w", i, err)
		}
		out = append(out, spec)
	}
	*l = out
	return nil
}

func decodePreprocessor(data []byte) (PreprocessorSpec, error) {
	var env struct {
		Type PreprocessorKind `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case PreprocessorRemap:
		var spec RemapSpec
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, err
		}
		return spec, nil
	case PreprocessorNormalize:
		return NormalizeSpec{}, nil
	case "":
		return nil, errors.New("preprocessor type is missing")
	default:
		return nil, fmt.Errorf("unknown preprocessor type %q", env.Type)
	}
}

// UnmarshalJSON overlays a document onto c, keeping defaults for absent keys.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	var payload struct {
		*plain
		Preprocessors *preprocessorList `json:"preprocessors"`
	}
	payload.plain = (*plain)(c)
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.Preprocessors != nil {
		c.Preprocessors = []PreprocessorSpec(*payload.Preprocessors)
	}
	return nil
}
