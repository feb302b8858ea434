package reconciler

import (
	"context"
	"fmt"

	"github.com/eleven-am/sgsync/internal/domain"
)

type call struct {
	direction domain.Direction
	key       domain.RuleKey
	cidrs     []domain.CIDR
}

type mockFirewall struct {
	rules       domain.RuleSet
	calls       []call
	describeErr error
	failOn      map[domain.Direction]error
}

func newMockFirewall() *mockFirewall {
	return &mockFirewall{
		rules:  domain.RuleSet{},
		failOn: make(map[domain.Direction]error),
	}
}

func (m *mockFirewall) DescribeRules(ctx context.Context, groupID string) (domain.RuleSet, error) {
	if m.describeErr != nil {
		return nil, m.describeErr
	}
	out := domain.RuleSet{}
	for k, s := range m.rules {
		out.Add(k, s.Sorted()...)
	}
	return out, nil
}

func (m *mockFirewall) Authorize(ctx context.Context, groupID string, key domain.RuleKey, cidrs []domain.CIDR) error {
	m.calls = append(m.calls, call{domain.DirectionAuthorize, key, cidrs})
	if err := m.failOn[domain.DirectionAuthorize]; err != nil {
		return err
	}
	m.rules.Add(key, cidrs...)
	return nil
}

func (m *mockFirewall) Revoke(ctx context.Context, groupID string, key domain.RuleKey, cidrs []domain.CIDR) error {
	m.calls = append(m.calls, call{domain.DirectionRevoke, key, cidrs})
	if err := m.failOn[domain.DirectionRevoke]; err != nil {
		return err
	}
	s, ok := m.rules[key]
	if !ok {
		return fmt.Errorf("rule %s not present", key)
	}
	for _, c := range cidrs {
		delete(s, c)
	}
	return nil
}

func (m *mockFirewall) callsFor(direction domain.Direction, key domain.RuleKey) int {
	n := 0
	for _, c := range m.calls {
		if c.direction == direction && c.key == key {
			n++
		}
	}
	return n
}
