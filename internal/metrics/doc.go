// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection attempts, establishments, failures and disconnect reasons
//   - Message and byte rates in both directions
//   - Send/receive queue overflows (backpressure disconnects)
//   - Rejected sends by reason
package metrics
