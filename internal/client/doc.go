// Package client defines the normalized client record shared by both
// systems and the identity policy used to diff the two client lists.
//
// A record originates either from the N-sight API (XML) or the Halo API
// (JSON). Both are reduced to the same shape so the reconciliation driver
// can compare them under a single policy.
package client
