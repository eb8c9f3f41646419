// Package feeder keeps the display supplied with messages.
//
// A [Feeder] runs two loops. The first adds every message newly saved to
// the local store as soon as it arrives. The second runs a cycle on a
// fixed interval: it gathers the stored messages together with the
// messages of every configured remote source, then adds as many random
// picks from that pool as it holds, each with a random font size.
//
// Remote sources are fetched concurrently through a worker pool using
// [Client], and their bodies are turned into entries by a [Decoder].
// Decoder panics are recovered and logged with a correlation id.
//
// Users of the danmaku library should not need to interact with this
// package directly. Sources are configured through the main package.
package feeder
