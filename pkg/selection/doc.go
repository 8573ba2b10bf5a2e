// Package selection resolves the origin cells of an analysis run.
//
// Origins come either from explicit physical points, each mapped through the
// grid with [FromPoints], or from a rectangle whose cell centers are collected
// with [FromRegion]. Point resolution is all-or-nothing: one point outside
// the grid fails the whole call with a [PointOutsideRegionError] and no set
// is returned.
//
// Points are read from delimited text with a header row naming the x and y
// columns, either from a file ([LoadFile], tab-delimited by default) or from
// "x,y" strings given on the command line ([ParseInline]).
package selection
