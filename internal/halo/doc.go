// Package halo is the client for the Halo PSA API.
//
// It covers three concerns: obtaining OAuth2 client-credentials tokens,
// reading paginated resources, and writing records. Writes go through a
// WriteSink so a dry run can substitute synthetic success responses
// without touching the HTTP layer.
//
// Every request runs through the retry wrapper; whether exhaustion aborts
// the run is chosen per call site. Reading the full client list is fatal
// (an incomplete list would fabricate false missing records), posting a
// single client is not.
package halo
