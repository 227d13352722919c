// Package harness runs compilation scenarios: a site compiled several
// times against the same stores, with changes between runs.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: blog
//	description: "bar reads the compiled content of foo"
//	rules: |
//	  compile: [{pattern: "/**/*.md", actions: [{filter: "template"}], path: "/{stem}.html"}]
//	steps:
//	  - name: first run
//	    items:
//	      - id: /foo.md
//	        content: "Foo {{ .Item.Attr \"title\" }}"
//	        attributes: {title: One}
//	    expect:
//	      outdated: ["rep:/foo.md#default"]
//	      written: [/foo.html]
//	      files: {/foo.html: "Foo One"}
//	    assertions:
//	      - type: trace_order
//	        events: ["compilation_started rep:/foo.md#default", "rep_write_ended rep:/foo.md#default"]
//
// # Traces
//
// A step trace holds the compilation, cache and write events of the run
// without sequence numbers or times, for example:
//
//	compilation_suspended rep:/bar.md#default blocker=rep:/foo.md#default
//	rep_write_ended rep:/foo.md#default create /foo.html
//
// Trace assertions match lines by prefix.
//
// # Assertion Types
//
//   - trace_contains: some line starts with event
//   - trace_order: lines starting with events appear in that order
//   - trace_count: exactly count lines start with event
//   - output_contains: the output file at path contains the text
//
// # Deterministic Testing
//
// Each scenario runs on an in-memory SQLite store with sequential run IDs,
// a stepped fake clock and a shared logical clock, so traces are stable
// enough for golden comparison with RunWithGolden.
package harness
