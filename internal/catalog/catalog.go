// Package catalog holds the static registry of runnable verification
// scripts. A catalog is built once at startup and never mutated.
package catalog

import "fmt"

// Script describes one runnable verification script.
type Script struct {
	ID          string // unique key, e.g. "pre-deployment"
	Name        string // display name
	Description string
	Category    string // e.g. "security", "health"
	Critical    bool   // included in critical-only batch runs
	Path        string // path relative to the scripts root
}

// Catalog is an ordered, immutable set of scripts with unique IDs.
// Iteration order is insertion order.
type Catalog struct {
	scripts []Script
	index   map[string]int
}

// New builds a catalog from the given scripts. It returns an error if
// any ID is empty or duplicated, or if a script has no path.
func New(scripts []Script) (*Catalog, error) {
	c := &Catalog{
		scripts: make([]Script, 0, len(scripts)),
		index:   make(map[string]int, len(scripts)),
	}
	for _, s := range scripts {
		if s.ID == "" {
			return nil, fmt.Errorf("script %q has an empty id", s.Name)
		}
		if s.Path == "" {
			return nil, fmt.Errorf("script %q has no path", s.ID)
		}
		if _, ok := c.index[s.ID]; ok {
			return nil, fmt.Errorf("duplicate script id %q", s.ID)
		}
		c.index[s.ID] = len(c.scripts)
		c.scripts = append(c.scripts, s)
	}
	return c, nil
}

// Get returns the script with the given ID.
func (c *Catalog) Get(id string) (Script, bool) {
	i, ok := c.index[id]
	if !ok {
		return Script{}, false
	}
	return c.scripts[i], true
}

// All returns every script in insertion order. The returned slice is a
// copy; callers may not mutate catalog state through it.
func (c *Catalog) All() []Script {
	out := make([]Script, len(c.scripts))
	copy(out, c.scripts)
	return out
}

// Critical returns the critical scripts in insertion order.
func (c *Catalog) Critical() []Script {
	var out []Script
	for _, s := range c.scripts {
		if s.Critical {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of scripts in the catalog.
func (c *Catalog) Len() int {
	return len(c.scripts)
}

// Default returns the built-in verification catalog.
func Default() *Catalog {
	c, err := New([]Script{
		{
			ID:          "pre-deployment",
			Name:        "Pre-Deployment Security",
			Description: "Scans for exposed secrets and credentials",
			Category:    "security",
			Critical:    true,
			Path:        "pre-deployment/01-secrets-check.sh",
		},
		{
			ID:          "config-validation",
			Name:        "Configuration Validation",
			Description: "Validates environment variables and settings",
			Category:    "config",
			Critical:    true,
			Path:        "config/01-env-validation.sh",
		},
		{
			ID:          "service-health",
			Name:        "Service Health Checks",
			Description: "Tests connectivity and health of all services",
			Category:    "health",
			Critical:    true,
			Path:        "health/01-service-health.sh",
		},
		{
			ID:          "security-tests",
			Name:        "Security Testing",
			Description: "Comprehensive security tests for each service",
			Category:    "security",
			Critical:    true,
			Path:        "security/01-service-security-tests.sh",
		},
		{
			ID:          "integration-tests",
			Name:        "Integration Testing",
			Description: "End-to-end workflow and service communication tests",
			Category:    "integration",
			Critical:    false,
			Path:        "integration/01-integration-tests.sh",
		},
		{
			ID:          "monitoring",
			Name:        "Security Monitoring",
			Description: "Monitors for security events and anomalies",
			Category:    "monitoring",
			Critical:    false,
			Path:        "monitoring/01-continuous-monitoring.sh",
		},
		{
			ID:          "backup",
			Name:        "Backup & Restore",
			Description: "Database backup operations",
			Category:    "backup",
			Critical:    false,
			Path:        "backup/01-backup-restore.sh",
		},
	})
	if err != nil {
		// The built-in table is static; a construction failure is a
		// programming error.
		panic(err)
	}
	return c
}
