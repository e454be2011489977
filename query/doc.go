// Package query provides asynchronous GPU completion signals: event, timer
// and occlusion queries, and the Manager that polls them once per core
// frame.
//
// Everything in this package is core-thread only.
//
// Protocol, identical for every kind:
//
//  1. Begin issues the query against the current command stream
//     (timer and occlusion queries also need End).
//  2. IsReady polls without blocking.
//  3. Results (TimeMs, NumSamples) are undefined until IsReady is true.
//
// Manager.Update, called once per core frame, fires the completion callback
// of every ready query exactly once and marks it inactive.
package query
