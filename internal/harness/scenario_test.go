package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "one item"
rules: |
  compile: [{pattern: "/**/*.md", path: "/{stem}.html"}]
steps:
  - name: first
    items:
      - id: /a.md
        content: A
        attributes: {title: Hello, draft: false, order: 3}
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Steps, 1)
	require.Len(t, s.Steps[0].Items, 1)

	doc := s.Steps[0].Items[0]
	assert.Equal(t, "/a.md", doc.ID)
	assert.Equal(t, "A", doc.Content)
	assert.Equal(t, map[string]any{"title": "Hello", "draft": false, "order": 3}, doc.Attributes)
	assert.Nil(t, s.Steps[0].Expect)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Expect(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: expect
description: "expectations"
rules: "compile: []"
steps:
  - name: first
    expect:
      outdated: []
      written: [/a.html]
      error: DEPENDENCY_CYCLE
      files: {/a.html: A}
`))
	require.NoError(t, err)
	exp := s.Steps[0].Expect
	require.NotNil(t, exp)
	assert.NotNil(t, exp.Outdated, "an explicit empty list is checked")
	assert.Empty(t, exp.Outdated)
	assert.Nil(t, exp.Pending)
	assert.Equal(t, []string{"/a.html"}, exp.Written)
	assert.Equal(t, "DEPENDENCY_CYCLE", exp.Error)
	assert.Equal(t, map[string]string{"/a.html": "A"}, exp.Files)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "malformed",
			yaml: "name: [",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: d\nrules: r\nsteps: [{name: s}]",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nrules: r\nsteps: [{name: s}]",
			want: "description is required",
		},
		{
			name: "missing rules",
			yaml: "name: n\ndescription: d\nsteps: [{name: s}]",
			want: "rules is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\nrules: r",
			want: "steps list is required",
		},
		{
			name: "unnamed step",
			yaml: "name: n\ndescription: d\nrules: r\nsteps: [{focus: [/a.md]}]",
			want: "steps[0]: name is required",
		},
		{
			name: "document without id",
			yaml: "name: n\ndescription: d\nrules: r\nsteps: [{name: s, layouts: [{content: x}]}]",
			want: "id is required",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nrules: r\nsteps: [{name: s, flow: []}]",
			want: "field flow not found",
		},
		{
			name: "assertion without type",
			yaml: "name: n\ndescription: d\nrules: r\nsteps: [{name: s, assertions: [{event: x}]}]",
			want: "type is required",
		},
		{
			name: "unknown assertion type",
			yaml: "name: n\ndescription: d\nrules: r\nsteps: [{name: s, assertions: [{type: final_state}]}]",
			want: `unknown assertion type "final_state"`,
		},
		{
			name: "trace_contains without event",
			yaml: "name: n\ndescription: d\nrules: r\nsteps: [{name: s, assertions: [{type: trace_contains}]}]",
			want: "event is required for trace_contains",
		},
		{
			name: "trace_order without events",
			yaml: "name: n\ndescription: d\nrules: r\nsteps: [{name: s, assertions: [{type: trace_order}]}]",
			want: "events list is required",
		},
		{
			name: "negative count",
			yaml: "name: n\ndescription: d\nrules: r\nsteps: [{name: s, assertions: [{type: trace_count, event: x, count: -1}]}]",
			want: "count must be non-negative",
		},
		{
			name: "output_contains without path",
			yaml: "name: n\ndescription: d\nrules: r\nsteps: [{name: s, assertions: [{type: output_contains, contains: x}]}]",
			want: "path is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_TraceCountZeroAllowed(t *testing.T) {
	_, err := ParseScenario([]byte("name: n\ndescription: d\nrules: r\nsteps: [{name: s, assertions: [{type: trace_count, event: x, count: 0}]}]"))
	assert.NoError(t, err)
}

func TestLoadScenarios(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"blog", "cycle", "focus"}, names)
}

func TestLoadScenarios_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: n"), 0644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}
