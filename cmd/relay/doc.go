// Package main runs the in-memory HTTP relay used by cipherline during
// development and tests. It stores published pre-key registrations and queues
// encrypted envelopes for recipients until they fetch and acknowledge them.
//
// See package internal/relay for the HTTP API. All state is held in memory
// and lost on process exit. The relay never sees plaintext or private keys.
// Prometheus metrics are served on /metrics.
package main
