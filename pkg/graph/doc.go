// Package graph defines the pipeline graph for meshwork.
// A pipeline is an immutable DAG of mesh sources (files, generators, SDF
// primitives) and operators (transforms, booleans, solidify, simplify,
// remesh, smoothing, hole filling) ending in named meshes and exports.
package graph
