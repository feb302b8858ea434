package domain

import (
	"fmt"
	"sort"
)

type CIDR string

type RuleKey struct {
	Protocol string
	Port     int
}

func (k RuleKey) String() string {
	return fmt.Sprintf("%s/%d", k.Protocol, k.Port)
}

type CIDRSet map[CIDR]struct{}

func NewCIDRSet(cidrs ...CIDR) CIDRSet {
	s := make(CIDRSet, len(cidrs))
	for _, c := range cidrs {
		s[c] = struct{}{}
	}
	return s
}

func (s CIDRSet) Add(c CIDR) {
	s[c] = struct{}{}
}

func (s CIDRSet) Has(c CIDR) bool {
	_, ok := s[c]
	return ok
}

// Minus returns the members of s that are not in other, sorted.
func (s CIDRSet) Minus(other CIDRSet) []CIDR {
	var out []CIDR
	for c := range s {
		if !other.Has(c) {
			out = append(out, c)
		}
	}
	sortCIDRs(out)
	return out
}

func (s CIDRSet) Sorted() []CIDR {
	out := make([]CIDR, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sortCIDRs(out)
	return out
}

func (s CIDRSet) Equal(other CIDRSet) bool {
	if len(s) != len(other) {
		return false
	}
	for c := range s {
		if !other.Has(c) {
			return false
		}
	}
	return true
}

// RuleSet is the ingress state of one group as reported by the provider.
type RuleSet map[RuleKey]CIDRSet

// CIDRs returns the set for key, empty when the rule is absent.
func (r RuleSet) CIDRs(key RuleKey) CIDRSet {
	if s, ok := r[key]; ok {
		return s
	}
	return CIDRSet{}
}

func (r RuleSet) Add(key RuleKey, cidrs ...CIDR) {
	s, ok := r[key]
	if !ok {
		s = CIDRSet{}
		r[key] = s
	}
	for _, c := range cidrs {
		s.Add(c)
	}
}

// DesiredHTTP is the deduplicated, sorted union of the operator address and
// the published ranges. Empty strings are dropped.
func DesiredHTTP(home CIDR, ranges []CIDR) []CIDR {
	set := CIDRSet{}
	if home != "" {
		set.Add(home)
	}
	for _, r := range ranges {
		if r != "" {
			set.Add(r)
		}
	}
	return set.Sorted()
}

func Strings(cidrs []CIDR) []string {
	out := make([]string, len(cidrs))
	for i, c := range cidrs {
		out[i] = string(c)
	}
	return out
}

func FromStrings(values []string) []CIDR {
	out := make([]CIDR, len(values))
	for i, v := range values {
		out[i] = CIDR(v)
	}
	return out
}

func sortCIDRs(cidrs []CIDR) {
	sort.Slice(cidrs, func(i, j int) bool { return cidrs[i] < cidrs[j] })
}
