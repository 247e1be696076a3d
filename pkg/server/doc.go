// Package server implements the consumer endpoint of a SceneLink channel.
//
// A Server accepts WebSocket connections from producing applications, decodes
// the message stream, stages fenced mutation bursts, and applies them to a
// scene.Store as atomic updates. Request kinds (Get, Query, Screenshot, Poll)
// are handed to a single scene-owning resolver loop; the connection goroutine
// parks on the request's completion indicator and writes the answer back once
// the resolver flips it.
//
// The HTTP surface is a chi router: the WebSocket endpoint, a health probe,
// and Prometheus metrics.
package server
