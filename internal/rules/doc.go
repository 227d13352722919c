// Package rules reads the rules file of a site and turns it into item reps,
// action sequences and layout filters.
//
// The rules file is CUE:
//
//	compile: [
//		{pattern: "/**/*.md", actions: [{filter: "markdown"}, {layout: "/default.*"}], path: "/{stem}.html"},
//		{pattern: "/**/*.md", rep: "raw", path: "/{stem}.txt"},
//		{pattern: "/assets/**/*"},
//	]
//	layouts: [
//		{pattern: "/**/*.html", filter: "template"},
//	]
//
// For every item and every rep name, the first compile rule with that rep
// name whose pattern matches the item produces the rep. Each built
// sequence starts with a "raw" snapshot, takes "pre" before the first
// layout unless the rule names it, and ends with "last", written to path
// when one is given. Paths may use {identifier}, {stem}, {ext} and {rep};
// identifier and stem are given without their leading slash.
package rules
