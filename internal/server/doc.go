// Package server provides the HTTP server for the danmaku overlay and API.
//
// This package is internal to danmaku and handles all HTTP concerns:
//
//   - Overlay serving: Serves the embedded overlay page at "/"
//   - Messages: submit with POST "/" or "/api/messages", list with GET
//     "/messages" or "/api/messages"
//   - Streams: display events over Server-Sent Events at "/api/sse" and
//     over WebSocket at "/api/ws"
//   - Control: pause, resume, clear, resize and visibility under "/api"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the danmaku library should not need to interact with this
// package directly. The server is started by [danmaku.Board.Start].
package server
