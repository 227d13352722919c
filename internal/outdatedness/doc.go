// Package outdatedness decides which objects must be recompiled.
//
// A fixed battery of rules runs per object kind and yields the object's
// direct reasons (BasicChecker). The Checker then walks the dependency graph
// backwards from every object with a direct reason, marking the objects that
// read affected data as outdated because of their dependencies.
package outdatedness
