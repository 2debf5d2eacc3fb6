package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ActionType is the wire discriminator of an Action.
type ActionType string

const (
	ActionCustom ActionType = "Custom"
	ActionShell  ActionType = "Shell"
	ActionCASL   ActionType = "CASL"
)

// Action is the closed set of effects a command response can request.
// Implementations: CustomAction, ShellAction, CASLAction.
type Action interface {
	Type() ActionType
	isAction()
}

// CustomAction requests no local effect; the sender already acted.
type CustomAction struct{}

// ShellAction runs Command through Shell (empty means /bin/sh).
type ShellAction struct {
	Shell   string
	Command string
}

// CASLAction invokes a builtin operation by name.
type CASLAction struct {
	Operation  string
	Parameters []string
}

func (CustomAction) Type() ActionType { return ActionCustom }
func (ShellAction) Type() ActionType  { return ActionShell }
func (CASLAction) Type() ActionType   { return ActionCASL }

func (CustomAction) isAction() {}
func (ShellAction) isAction()  {}
func (CASLAction) isAction()   {}

type actionWire struct {
	Type       ActionType `json:"type"`
	Shell      *string    `json:"shell,omitempty"`
	Command    *string    `json:"command,omitempty"`
	Operation  *string    `json:"operation,omitempty"`
	Parameters []string   `json:"parameters,omitempty"`
}

// DecodeAction parses a tagged action directly into its variant.
func DecodeAction(raw []byte) (Action, error) {
	var wire actionWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}

	switch wire.Type {
	case ActionCustom:
		return CustomAction{}, nil
	case ActionShell:
		if wire.Command == nil {
			return nil, errors.New("decode action: Shell action requires command")
		}
		action := ShellAction{Command: *wire.Command}
		if wire.Shell != nil {
			action.Shell = *wire.Shell
		}
		return action, nil
	case ActionCASL:
		if wire.Operation == nil {
			return nil, errors.New("decode action: CASL action requires operation")
		}
		return CASLAction{Operation: *wire.Operation, Parameters: wire.Parameters}, nil
	case "":
		return nil, errors.New("decode action: missing type")
	default:
		return nil, fmt.Errorf("decode action: unknown type %q", wire.Type)
	}
}

// EncodeAction renders an action with its type discriminator.
func EncodeAction(action Action) ([]byte, error) {
	switch a := action.(type) {
	case CustomAction:
		return json.Marshal(actionWire{Type: ActionCustom})
	case ShellAction:
		wire := actionWire{Type: ActionShell, Command: &a.Command}
		if a.Shell != "" {
			wire.Shell = &a.Shell
		}
		return json.Marshal(wire)
	case CASLAction:
		params := a.Parameters
		if params == nil {
			params = []string{}
		}
		return json.Marshal(struct {
			Type       ActionType `json:"type"`
			Operation  string     `json:"operation"`
			Parameters []string   `json:"parameters"`
		}{ActionCASL, a.Operation, params})
	case nil:
		return nil, errors.New("encode action: nil action")
	default:
		return nil, fmt.Errorf("encode action: unsupported %T", action)
	}
}

// CloneAction returns a deep copy of action.
func CloneAction(action Action) Action {
	if a, ok := action.(CASLAction); ok {
		a.Parameters = slices.Clone(a.Parameters)
		return a
	}
	return action
}
