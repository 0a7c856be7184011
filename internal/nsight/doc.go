// Package nsight fetches the client list from the N-sight RMM API.
//
// The endpoint returns Latin-1 encoded XML. Fetch failures are retried and
// then absorbed: an RMM outage degrades the run to "no source clients
// found" instead of crashing it.
package nsight
