package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrModuleSectionMissing indicates that [module] is missing from the manifest.
var ErrModuleSectionMissing = errors.New("missing [module]")

// Manifest describes an hlbc.toml build manifest.
type Manifest struct {
	Module  ModuleSection  `toml:"module"`
	Natives NativesSection `toml:"natives"`
}

// ModuleSection is the [module] table.
type ModuleSection struct {
	Name   string `toml:"name"`
	Entry  string `toml:"entry"`
	Output string `toml:"output"`
}

// NativesSection is the [natives] table.
type NativesSection struct {
	Search []string `toml:"search"`
}

// Load parses an hlbc.toml manifest at path.
func Load(path string) (*Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("module") {
		return nil, fmt.Errorf("%s: %w", path, ErrModuleSectionMissing)
	}
	m.Module.Entry = strings.TrimSpace(m.Module.Entry)
	m.Module.Output = strings.TrimSpace(m.Module.Output)
	if m.Module.Entry == "" {
		return nil, fmt.Errorf("%s: [module].entry is required", path)
	}
	if m.Module.Output == "" {
		return nil, fmt.Errorf("%s: [module].output is required", path)
	}
	return &m, nil
}
