// Package relay implements the store-and-forward relay and its HTTP client.
//
// The relay holds published pre-key registrations and queues ciphertext
// envelopes for recipients until they fetch and acknowledge them. It never
// sees plaintext or private keys. Each one-time pre-key it holds is handed
// out in at most one bundle.
//
// HTTP API
//
//	POST /register                 store a PreKeyRegistration
//	GET  /prekey/{username}        return a bundle, popping one one-time pre-key
//	POST /msg/{username}           enqueue an Envelope
//	GET  /msg/{username}?limit=N   return up to N queued envelopes
//	POST /msg/{username}/ack       drop the first {"count": N} envelopes
//	GET  /metrics                  Prometheus metrics
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Non-2xx statuses are returned as errors with the method, path
// and status text.
package relay
