// Package deps records which objects read which other objects' data.
//
// An edge (from, to, props) means the compilation of item `to` read data of
// `from`. Props says which data: raw content, attributes (optionally narrowed
// to specific keys, or to key/value pairs for collection queries), or
// compiled content. The graph is loaded at the start of a run, edited while
// reps compile, and persisted once at the end.
package deps
