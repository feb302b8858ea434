package reconciler

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/eleven-am/sgsync/internal/domain"
)

// Allows reports whether rules admit source on key. A source prefix is
// admitted only when an allowed CIDR covers all of it.
func Allows(rules domain.RuleSet, key domain.RuleKey, source domain.CIDR) bool {
	target, err := parsePrefix(source)
	if err != nil {
		return false
	}
	for c := range rules.CIDRs(key) {
		allowed, err := parsePrefix(c)
		if err != nil {
			continue
		}
		if allowed.Bits() <= target.Bits() && allowed.Contains(target.Addr()) {
			return true
		}
	}
	return false
}

// Verify reads the group back and checks that source reaches the HTTP rule
// and that SSH is open to every address.
func (r *Reconciler) Verify(ctx context.Context, groupID string, source domain.CIDR) error {
	current, err := r.firewall.DescribeRules(ctx, groupID)
	if err != nil {
		return fmt.Errorf("read rules of %s: %w", groupID, err)
	}
	if !Allows(current, r.policy.HTTP, source) {
		return &domain.BlockingError{GroupID: groupID, Rule: r.policy.HTTP, Source: source}
	}
	if !current.CIDRs(r.policy.SSH).Has(r.policy.AllAddresses) {
		return &domain.BlockingError{GroupID: groupID, Rule: r.policy.SSH, Source: r.policy.AllAddresses}
	}
	return nil
}

func parsePrefix(c domain.CIDR) (netip.Prefix, error) {
	s := string(c)
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		addr = addr.Unmap()
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return p.Masked(), nil
}
