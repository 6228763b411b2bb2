// Package config loads and validates the optional .vigil YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deixis/vigil/internal/catalog"
	"gopkg.in/yaml.v3"
)

// Default locations, relative to the root directory.
const (
	DefaultScriptsRoot = "scripts/verification"
	DefaultHistoryFile = "verification-history.json"
)

// Config holds the parsed .vigil configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version        int            `yaml:"version"`
	RawScriptsRoot string         `yaml:"scripts_root"` // relative to root or absolute
	RawHistoryFile string         `yaml:"history_file"` // relative to root or absolute
	Scripts        []ScriptConfig `yaml:"scripts"`      // catalog override; empty = built-in
}

// ScriptConfig describes one catalog entry in the .vigil file.
type ScriptConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Critical    bool   `yaml:"critical"`
	Path        string `yaml:"path"` // relative to the scripts root
}

// Catalog returns the configured catalog, falling back to the built-in
// one when no scripts are listed.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	if len(c.Scripts) == 0 {
		return catalog.Default(), nil
	}
	scripts := make([]catalog.Script, 0, len(c.Scripts))
	for _, s := range c.Scripts {
		scripts = append(scripts, catalog.Script{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Category:    s.Category,
			Critical:    s.Critical,
			Path:        s.Path,
		})
	}
	cat, err := catalog.New(scripts)
	if err != nil {
		return nil, fmt.Errorf("invalid scripts section: %w", err)
	}
	return cat, nil
}

// LoadResult holds the parsed config and the discovered root directory.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .vigil; falls back to workspace
}

// ScriptsRoot returns the absolute scripts root directory.
func (r *LoadResult) ScriptsRoot() string {
	return r.resolve(r.Config.RawScriptsRoot, DefaultScriptsRoot)
}

// HistoryFile returns the absolute path of the history log file.
func (r *LoadResult) HistoryFile() string {
	return r.resolve(r.Config.RawHistoryFile, DefaultHistoryFile)
}

func (r *LoadResult) resolve(raw, fallback string) string {
	if raw == "" {
		raw = fallback
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Join(r.Root, raw)
}

// Load reads the .vigil file, discovered by walking upward from
// workspace. If no .vigil file exists anywhere above the workspace, a
// default Config rooted at the workspace is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRoot(workspace)
	if err != nil {
		// No .vigil found; use workspace as root with defaults.
		abs, absErr := filepath.Abs(workspace)
		if absErr != nil {
			return nil, fmt.Errorf("resolving workspace: %w", absErr)
		}
		return &LoadResult{Config: &Config{}, Root: abs}, nil
	}

	data, err := os.ReadFile(filepath.Join(root, ".vigil"))
	if err != nil {
		return nil, fmt.Errorf("reading .vigil: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing .vigil: %w", err)
	}
	return &LoadResult{Config: cfg, Root: root}, nil
}

// findRoot walks upward from dir looking for a directory containing .vigil.
func findRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".vigil")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf(".vigil not found")
		}
		dir = parent
	}
}
