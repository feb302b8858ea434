package domain

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDesiredHTTP(t *testing.T) {
	tests := []struct {
		name   string
		home   CIDR
		ranges []CIDR
		want   []CIDR
	}{
		{
			name:   "union sorted",
			home:   "9.9.9.9/32",
			ranges: []CIDR{"173.245.48.0/20", "103.21.244.0/22"},
			want:   []CIDR{"103.21.244.0/22", "173.245.48.0/20", "9.9.9.9/32"},
		},
		{
			name:   "home already published",
			home:   "1.1.1.1/32",
			ranges: []CIDR{"1.1.1.1/32", "1.1.1.1/32"},
			want:   []CIDR{"1.1.1.1/32"},
		},
		{
			name:   "empty entries dropped",
			home:   "",
			ranges: []CIDR{"", "10.0.0.0/8"},
			want:   []CIDR{"10.0.0.0/8"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DesiredHTTP(tt.home, tt.ranges)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DesiredHTTP() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCIDRSet_Minus(t *testing.T) {
	a := NewCIDRSet("1.1.1.1/32", "2.2.2.2/32", "3.3.3.3/32")
	b := NewCIDRSet("2.2.2.2/32")

	got := a.Minus(b)
	want := []CIDR{"1.1.1.1/32", "3.3.3.3/32"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Minus() = %v, want %v", got, want)
	}
	if len(b.Minus(a)) != 0 {
		t.Errorf("expected empty difference, got %v", b.Minus(a))
	}
}

func TestCIDRSet_ExactMatch(t *testing.T) {
	s := NewCIDRSet("1.2.3.4/32")
	if s.Has("1.2.3.4") {
		t.Error("CIDRs must match as exact strings")
	}
	if s.Equal(NewCIDRSet("1.2.3.4")) {
		t.Error("sets with different spellings must not be equal")
	}
	if !s.Equal(NewCIDRSet("1.2.3.4/32")) {
		t.Error("expected equal sets")
	}
}

func TestRuleSet_CIDRs(t *testing.T) {
	rs := RuleSet{}
	http := RuleKey{Protocol: "tcp", Port: 80}

	if got := rs.CIDRs(http); len(got) != 0 {
		t.Errorf("absent rule should be empty, got %v", got)
	}

	rs.Add(http, "1.1.1.1/32")
	rs.Add(http, "2.2.2.2/32", "1.1.1.1/32")
	if got := rs.CIDRs(http).Sorted(); len(got) != 2 {
		t.Errorf("CIDRs() = %v, want 2 entries", got)
	}
	if http.String() != "tcp/80" {
		t.Errorf("String() = %q", http.String())
	}
}

func TestAmbiguousGroupError(t *testing.T) {
	err := error(&AmbiguousGroupError{Lookup: "name", Candidates: []string{"sg-1", "sg-2"}})

	if !errors.Is(err, ErrAmbiguousGroup) {
		t.Error("expected error to match ErrAmbiguousGroup")
	}
	if msg := err.Error(); !strings.Contains(msg, "sg-1") || !strings.Contains(msg, "sg-2") {
		t.Errorf("message should list candidates, got %q", msg)
	}
}

func TestReconcileResult_Changed(t *testing.T) {
	if (ReconcileResult{}).Changed() {
		t.Error("empty result should not report a change")
	}
	if !(ReconcileResult{SSHAdded: true}).Changed() {
		t.Error("ssh addition is a change")
	}
	if !(ReconcileResult{Removed: []CIDR{"1.1.1.1/32"}}).Changed() {
		t.Error("removal is a change")
	}
}
