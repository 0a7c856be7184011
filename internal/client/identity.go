package client

import "strings"

// IdentityPolicy decides when two records refer to the same client.
// Name is always compared, case-insensitively. When grouping is enabled the
// toplevel id must match as well.
//
// The policy is a value: resolve it once at startup and pass it into the
// diff. It is never mutated after the diff begins.
type IdentityPolicy struct {
	matchGroup bool
}

// DefaultPolicy compares records by name only.
func DefaultPolicy() IdentityPolicy {
	return IdentityPolicy{}
}

// WithGroup returns a copy of the policy that additionally requires
// matching group ids.
func (p IdentityPolicy) WithGroup() IdentityPolicy {
	p.matchGroup = true
	return p
}

// MatchesGroup reports whether the policy compares group ids.
func (p IdentityPolicy) MatchesGroup() bool {
	return p.matchGroup
}

// Equal reports whether a and b are the same client under the policy.
// Symmetric: Equal(a, b) == Equal(b, a).
func (p IdentityPolicy) Equal(a, b Record) bool {
	if !strings.EqualFold(a.Name, b.Name) {
		return false
	}
	if p.matchGroup && !strings.EqualFold(a.GroupID, b.GroupID) {
		return false
	}
	return true
}

// Missing returns every element of source with no Equal counterpart in
// target, preserving source order. This is the business rule the whole
// pipeline exists to compute: the clients that still need to be created in
// the target system.
//
// List sizes are tens to low thousands, so a linear scan beats maintaining
// a keyed index.
func Missing(policy IdentityPolicy, source, target []Record) []Record {
	var missing []Record
	for _, s := range source {
		found := false
		for _, t := range target {
			if policy.Equal(s, t) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, s)
		}
	}
	return missing
}
