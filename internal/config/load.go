package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loaded captures resolved config path, decoded values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
}

// Load resolves, reads, decodes, and validates the runtime configuration.
// Relative model, scorer, and redirect paths are anchored at the config
// file's directory.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{}, fmt.Errorf("config file %q not found", resolvedPath)
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg := Default()
	if err := decodeDocument(resolvedPath, content, &cfg); err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	anchorPaths(&cfg, filepath.Dir(resolvedPath))

	warnings, err := Validate(cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
	}, nil
}

// LoadCommandSpec reads one complete command spec from a redirect target.
func LoadCommandSpec(path string) (CommandSpec, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return CommandSpec{}, fmt.Errorf("read redirect target %q: %w", path, err)
	}

	var spec CommandSpec
	if err := decodeDocument(path, content, &spec); err != nil {
		return CommandSpec{}, fmt.Errorf("parse redirect target %q: %w", path, err)
	}
	if redirect, ok := spec.Transport.(RedirectTransport); ok {
		redirect.Path = resolveRelative(filepath.Dir(path), redirect.Path)
		spec.Transport = redirect
	}
	return spec, nil
}

// decodeDocument decodes JSON, or YAML for .yaml/.yml paths, into out.
func decodeDocument(path string, content []byte, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return err
		}
		if doc == nil {
			return errors.New("document is empty")
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("convert yaml document: %w", err)
		}
		content = converted
	}

	if len(bytes.TrimSpace(content)) == 0 {
		return errors.New("document is empty")
	}
	if err := json.Unmarshal(content, out); err != nil {
		return wrapJSONDecodeError(content, err)
	}
	return nil
}

// anchorPaths resolves relative file references against baseDir.
func anchorPaths(cfg *Config, baseDir string) {
	cfg.Model = resolveRelative(baseDir, cfg.Model)
	cfg.Scorer = resolveRelative(baseDir, cfg.Scorer)
	for i, cmd := range cfg.Commands {
		if redirect, ok := cmd.Transport.(RedirectTransport); ok {
			redirect.Path = resolveRelative(baseDir, redirect.Path)
			cfg.Commands[i].Transport = redirect
		}
	}
}

// wrapJSONDecodeError adds line/column context to syntax errors.
func wrapJSONDecodeError(content []byte, err error) error {
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	line, col := 1, 1
	for i := int64(0); i < syntaxErr.Offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return fmt.Errorf("line %d col %d: %w", line, col, err)
}
