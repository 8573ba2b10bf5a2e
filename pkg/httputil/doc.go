// Package httputil provides HTTP plumbing shared by the API handlers.
//
// # Overview
//
//   - [WriteJSON] and [WriteError]: JSON responses, with errors mapped to a
//     status code by their structured code
//   - [DecodeJSON]: size-limited request decoding that rejects unknown fields
//   - [Instrument]: middleware reporting each request to the observability
//     API hooks and the logger
//
// # Errors
//
// [StatusFor] maps codes from pkg/errors to HTTP status codes: validation
// and bounds failures are 400, missing resources 404, a cancelled run 408,
// and anything uncoded 500. Error bodies have the form
//
//	{"error": "Point outside of target region: ...", "code": "POINT_OUTSIDE_REGION"}
package httputil
