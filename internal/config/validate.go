package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// MaxRedirectDepth bounds nested redirect targets.
const MaxRedirectDepth = 8

// ErrRedirectDepth reports a redirect chain that is too deep or cyclic.
var ErrRedirectDepth = errors.New("redirect chain exceeds maximum depth")

// CompilePrecondition compiles a command precondition with case-insensitive
// matching.
func CompilePrecondition(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model must not be empty")
	}
	if err := checkFile("model", cfg.Model); err != nil {
		return nil, err
	}
	if cfg.Scorer != "" {
		if err := checkFile("scorer", cfg.Scorer); err != nil {
			return nil, err
		}
	}
	if cfg.CarryoverBufferSize <= 0 {
		return nil, fmt.Errorf("carryover_buffer_size must be > 0")
	}
	if cfg.RefreshBufferThreshold <= 0 {
		return nil, fmt.Errorf("refresh_buffer_threshold must be > 0")
	}
	if cfg.CarryoverBufferSize > cfg.RefreshBufferThreshold {
		return nil, fmt.Errorf("carryover_buffer_size must be <= refresh_buffer_threshold")
	}
	if cfg.GapDetectionMS == 0 {
		return nil, fmt.Errorf("gap_detection_ms must be > 0")
	}
	if strings.TrimSpace(cfg.Decoder.Endpoint) == "" {
		return nil, fmt.Errorf("decoder.endpoint must not be empty")
	}
	if !strings.HasPrefix(cfg.Decoder.Method, "/") {
		return nil, fmt.Errorf("decoder.method must start with '/'")
	}
	if cfg.Decoder.DialTimeoutMS < 0 {
		return nil, fmt.Errorf("decoder.dial_timeout_ms must be >= 0")
	}

	for i, spec := range cfg.Preprocessors {
		if err := validatePreprocessor(spec); err != nil {
			return nil, fmt.Errorf("preprocessors[%d]: %w", i, err)
		}
	}

	for i, cmd := range cfg.Commands {
		if err := validateCommand(cmd, 0); err != nil {
			return nil, fmt.Errorf("commands[%d]: %w", i, err)
		}
	}
	if len(cfg.Commands) == 0 {
		warnings = append(warnings, Warning{Message: "no commands configured; phrases will only be logged"})
	}

	return warnings, nil
}

func validatePreprocessor(spec PreprocessorSpec) error {
	switch p := spec.(type) {
	case RemapSpec:
		for j, m := range p.Mappings {
			if _, err := regexp.Compile(m.Search); err != nil {
				label := m.Name
				if label == "" {
					label = m.Search
				}
				return fmt.Errorf("mappings[%d] (%s): invalid search pattern: %w", j, label, err)
			}
		}
		return nil
	case NormalizeSpec:
		return nil
	case nil:
		return errors.New("preprocessor is missing")
	default:
		return fmt.Errorf("unsupported preprocessor %T", spec)
	}
}

func validateCommand(cmd CommandSpec, depth int) error {
	if _, err := CompilePrecondition(cmd.Precondition); err != nil {
		return fmt.Errorf("invalid precondition: %w", err)
	}

	switch t := cmd.Transport.(type) {
	case NetTransport:
		if t.SrcPort < 0 || t.SrcPort > 65535 {
			return fmt.Errorf("src_port %d out of range", t.SrcPort)
		}
		if t.DstPort <= 0 || t.DstPort > 65535 {
			return fmt.Errorf("dst_port %d out of range", t.DstPort)
		}
		if t.TimeoutMS < 0 {
			return fmt.Errorf("timeout_ms must be >= 0")
		}
	case StdIOTransport:
		argv, err := ParseArgv(t.Command)
		if err != nil {
			return err
		}
		if len(argv) == 0 {
			return fmt.Errorf("stdio command is empty")
		}
		if t.TimeoutMS < 0 {
			return fmt.Errorf("timeout_ms must be >= 0")
		}
	case ShellTransport:
		if strings.TrimSpace(t.Command) == "" {
			return fmt.Errorf("shell command template is empty")
		}
	case RedirectTransport:
		if depth >= MaxRedirectDepth {
			return fmt.Errorf("%w (at %q)", ErrRedirectDepth, t.Path)
		}
		target, err := LoadCommandSpec(t.Path)
		if err != nil {
			return err
		}
		if err := validateCommand(target, depth+1); err != nil {
			return fmt.Errorf("redirect %q: %w", t.Path, err)
		}
	case ActionTransport:
		if t.Action == nil {
			return fmt.Errorf("action command has no action")
		}
	case nil:
		return fmt.Errorf("command transport is missing")
	default:
		return fmt.Errorf("unsupported command transport %T", cmd.Transport)
	}
	return nil
}

func checkFile(field string, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s file %q does not exist", field, path)
		}
		return fmt.Errorf("stat %s file %q: %w", field, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s path %q is a directory", field, path)
	}
	return nil
}
