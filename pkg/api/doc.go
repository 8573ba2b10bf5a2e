// Package api serves step-depth analyses over HTTP.
//
// # Routes
//
//	GET  /healthz                  build information
//	POST /v1/stepdepth             run an analysis
//	GET  /v1/runs/{id}             run record without values
//	GET  /v1/runs/{id}/column      the computed column
//
// A step-depth request carries the visibility graph document (the format
// written by vga.WriteJSON), the origin points and the cost model:
//
//	{
//	  "graph": {"region": {"min": [0, 0], "max": [3, 3]}, "spacing": 1, "edges": [[0, 0, 1, 0]]},
//	  "points": [[0.5, 0.5]],
//	  "type": "angular"
//	}
//
// Runs are stored in the runner's cache under their run key and expire with
// it. The request context bounds the run: a client that disconnects cancels
// propagation at the next check point.
package api
