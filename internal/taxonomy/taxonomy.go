// Package taxonomy reconciles broker-specific object classifications
// into one canonical hierarchy. A Table holds the per-broker label
// maps and the code ancestry, loaded once at startup and read-only
// afterwards; resolution and aggregation allocate only per-call state
// and are safe for concurrent use.
package taxonomy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nightwatch-obs/alert-radar/internal/models"
)

const (
	// RootCode is the sentinel at the top of every ancestry chain.
	RootCode = "~Root"

	// DefaultHopLimit bounds any walk up the ancestry map. A chain
	// longer than this is a malformed configuration, not real data.
	DefaultHopLimit = 32

	// LevelAny marks a label mapping that applies to every classifier
	// stage of its broker.
	LevelAny = "*"

	// unknownCode is where records with a blank label land.
	unknownCode = "Unknown"
)

// ConfigError reports a malformed taxonomy configuration: a cycle in
// the ancestry map, a chain that never reaches the root, or a label
// mapped to a code with no ancestry entry. It is fatal at load time.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "taxonomy config: " + e.Reason
}

type labelKey struct {
	Source string
	Level  string
	Label  string
}

// Table is the immutable classification lookup set: per-broker raw
// label to canonical code maps plus the single global code ancestry.
type Table struct {
	labels   map[labelKey]string
	ancestry map[string]string
	hopLimit int
}

// File is the on-disk YAML layout: labels keyed by broker name, then
// classifier level ("*" for level-agnostic entries), then raw label;
// ancestry as a flat code to parent map where top-level codes point at
// "~Root".
type File struct {
	HopLimit int                                     `yaml:"hop_limit"`
	Labels   map[string]map[string]map[string]string `yaml:"labels"`
	Ancestry map[string]string                       `yaml:"ancestry"`
}

// Load reads and validates a taxonomy file.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy file: %w", err)
	}
	return New(f)
}

// New builds a Table from the open mapping layout and validates it:
// every mapped code and every ancestry entry must reach the root
// within the hop limit. Violations fail here, never at aggregation
// time.
func New(f File) (*Table, error) {
	t := &Table{
		labels:   make(map[labelKey]string),
		ancestry: make(map[string]string, len(f.Ancestry)),
		hopLimit: f.HopLimit,
	}
	if t.hopLimit <= 0 {
		t.hopLimit = DefaultHopLimit
	}

	for code, parent := range f.Ancestry {
		if code == RootCode {
			return nil, &ConfigError{Reason: "the root sentinel cannot have a parent"}
		}
		t.ancestry[code] = parent
	}

	for source, levels := range f.Labels {
		for level, mapping := range levels {
			for label, code := range mapping {
				if strings.TrimSpace(code) == "" {
					return nil, &ConfigError{Reason: fmt.Sprintf(
						"label %q (%s/%s) maps to an empty code", label, source, level)}
				}
				t.labels[labelKey{Source: source, Level: level, Label: label}] = code
			}
		}
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) validate() error {
	for key, code := range t.labels {
		if code == RootCode {
			continue
		}
		if _, ok := t.ancestry[code]; !ok {
			return &ConfigError{Reason: fmt.Sprintf(
				"label %q (%s/%s) maps to code %q with no ancestry entry",
				key.Label, key.Source, key.Level, code)}
		}
	}
	for code := range t.ancestry {
		if _, err := t.Chain(code); err != nil {
			return err
		}
	}
	return nil
}

// HopLimit returns the configured ancestry walk ceiling.
func (t *Table) HopLimit() int { return t.hopLimit }

// Parent looks up the immediate ancestor of a code.
func (t *Table) Parent(code string) (string, bool) {
	parent, ok := t.ancestry[code]
	return parent, ok
}

// Chain walks the ancestry from code to the root and returns the
// ordered path [code, parent(code), ..., RootCode]. A code with no
// ancestry entry is a one-hop leaf attached directly to the root; that
// is the designed landing spot for unmapped fallback labels. Exceeding
// the hop limit is a ConfigError, never a silent truncation.
func (t *Table) Chain(code string) ([]string, error) {
	if code == RootCode {
		return []string{RootCode}, nil
	}

	chain := make([]string, 1, 4)
	chain[0] = code
	cur := code
	for hops := 0; ; hops++ {
		if hops >= t.hopLimit {
			return nil, &ConfigError{Reason: fmt.Sprintf(
				"ancestry walk from %q exceeded %d hops, the map contains a cycle", code, t.hopLimit)}
		}
		parent, ok := t.ancestry[cur]
		if !ok {
			chain = append(chain, RootCode)
			return chain, nil
		}
		chain = append(chain, parent)
		if parent == RootCode {
			return chain, nil
		}
		cur = parent
	}
}

// Resolve maps a classification record to its canonical taxonomy code.
// The level-specific mapping wins over the broker's level-agnostic one.
// An unmapped label is returned as-is so that configuration gaps stay
// visible in the aggregation output instead of being dropped; a blank
// label resolves to the Unknown code. Resolve never fails.
func (t *Table) Resolve(rec models.ClassificationRecord) string {
	if code, ok := t.labels[labelKey{Source: rec.Source, Level: rec.Level, Label: rec.Label}]; ok {
		return code
	}
	if code, ok := t.labels[labelKey{Source: rec.Source, Level: LevelAny, Label: rec.Label}]; ok {
		return code
	}
	if label := strings.TrimSpace(rec.Label); label != "" {
		return label
	}
	return unknownCode
}
