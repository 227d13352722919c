// Package site models the compilable objects of a site.
//
// Every object that can appear in the dependency graph is named by a Ref,
// a closed union over the object kinds. Switches over Kind are exhaustive
// and fall through to an InternalInconsistencyError on anything else.
package site
