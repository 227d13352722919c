// Package view exposes site data to filters and layouts.
//
// Every read made through a view records a dependency edge onto the item
// being compiled before anything else happens, so even a read that ends in
// an UnmetDependencyError leaves correct edges behind.
package view
