package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a site compiled several times, with changes between runs.
// Each step mutates the site, compiles it against the same stores, and
// checks what was outdated, written and traced.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is the CUE rules file of the site.
	Rules string `yaml:"rules"`

	// Config is the site configuration object.
	Config map[string]any `yaml:"config,omitempty"`

	// Steps run in order against the same stores and output.
	Steps []Step `yaml:"steps"`
}

// Document is an item or layout to create or replace.
type Document struct {
	ID         string         `yaml:"id"`
	Content    string         `yaml:"content"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
}

// Step is one compilation run and the changes made before it.
type Step struct {
	Name string `yaml:"name"`

	// Items and Layouts are created or replaced before compiling.
	Items   []Document `yaml:"items,omitempty"`
	Layouts []Document `yaml:"layouts,omitempty"`

	// RemoveItems and RemoveLayouts are deleted before compiling.
	RemoveItems   []string `yaml:"remove_items,omitempty"`
	RemoveLayouts []string `yaml:"remove_layouts,omitempty"`

	// Rules replaces the rules file from this step on.
	Rules string `yaml:"rules,omitempty"`

	// Focus limits compilation to items matching these patterns.
	Focus []string `yaml:"focus,omitempty"`

	// ChecksumAlgorithm selects the digest for this run ("sha256" when
	// empty).
	ChecksumAlgorithm string `yaml:"checksum_algorithm,omitempty"`

	// MaxSuspensions bounds suspensions for this run; zero uses the
	// default quota.
	MaxSuspensions int `yaml:"max_suspensions,omitempty"`

	Expect     *Expect     `yaml:"expect,omitempty"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect lists exact outcomes of a step. Nil fields are not checked.
type Expect struct {
	// Outdated are the reps outdated at the start of the run, as refs
	// like "rep:/foo.md#default".
	Outdated []string `yaml:"outdated,omitempty"`

	// Written are the paths created or updated, in write order.
	Written []string `yaml:"written,omitempty"`

	// Pending are the reps still outdated after the run.
	Pending []string `yaml:"pending,omitempty"`

	// Error is a substring of the run error. Empty means the run must
	// succeed.
	Error string `yaml:"error,omitempty"`

	// Files maps output paths to their full content after the run.
	Files map[string]string `yaml:"files,omitempty"`
}

// Assertion validates the trace or the output of a step.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is an event line prefix (used by trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Events are event line prefixes expected in order (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Path and Contains check an output file (output_contains).
	Path     string `yaml:"path,omitempty"`
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertTraceCount     = "trace_count"
	AssertOutputContains = "output_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos do not silently skip checks.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file of dir, in name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	var out []*Scenario
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Rules == "" {
		return fmt.Errorf("rules is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		for j, doc := range append(append([]Document{}, step.Items...), step.Layouts...) {
			if doc.ID == "" {
				return fmt.Errorf("steps[%d]: document %d: id is required", i, j)
			}
		}
		for j := range step.Assertions {
			if err := validateAssertion(i, j, &step.Assertions[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateAssertion(step, index int, a *Assertion) error {
	prefix := fmt.Sprintf("steps[%d].assertions[%d]", step, index)
	switch a.Type {
	case "":
		return fmt.Errorf("%s: type is required", prefix)
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("%s: event is required for trace_contains", prefix)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("%s: events list is required for trace_order", prefix)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("%s: event is required for trace_count", prefix)
		}
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative for trace_count", prefix)
		}
	case AssertOutputContains:
		if a.Path == "" {
			return fmt.Errorf("%s: path is required for output_contains", prefix)
		}
	default:
		return fmt.Errorf("%s: unknown assertion type %q", prefix, a.Type)
	}
	return nil
}
