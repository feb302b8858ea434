// Package reconciler converges a security group's HTTP ingress rule to a
// desired CIDR set and keeps SSH ingress open, using at most one mutation
// call per direction.
package reconciler

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/eleven-am/sgsync/internal/domain"
)

// Policy names the two rules the reconciler owns.
type Policy struct {
	SSH          domain.RuleKey
	HTTP         domain.RuleKey
	AllAddresses domain.CIDR
}

func DefaultPolicy() Policy {
	return Policy{
		SSH:          domain.RuleKey{Protocol: "tcp", Port: 22},
		HTTP:         domain.RuleKey{Protocol: "tcp", Port: 80},
		AllAddresses: "0.0.0.0/0",
	}
}

// Plan computes the mutations that move current to desired. The result is
// ordered SSH authorize, HTTP revoke, HTTP authorize, each present only when
// needed. SSH entries are never revoked.
func Plan(current domain.RuleSet, desired []domain.CIDR, p Policy) []domain.Mutation {
	var plan []domain.Mutation

	if !current.CIDRs(p.SSH).Has(p.AllAddresses) {
		plan = append(plan, domain.Mutation{
			Direction: domain.DirectionAuthorize,
			Key:       p.SSH,
			CIDRs:     []domain.CIDR{p.AllAddresses},
		})
	}

	have := current.CIDRs(p.HTTP)
	want := domain.NewCIDRSet(desired...)

	if revoke := have.Minus(want); len(revoke) > 0 {
		plan = append(plan, domain.Mutation{
			Direction: domain.DirectionRevoke,
			Key:       p.HTTP,
			CIDRs:     revoke,
		})
	}
	if authorize := want.Minus(have); len(authorize) > 0 {
		plan = append(plan, domain.Mutation{
			Direction: domain.DirectionAuthorize,
			Key:       p.HTTP,
			CIDRs:     authorize,
		})
	}
	return plan
}

// PartialError reports a mutation failure together with the mutations that
// were already applied. Applied mutations are not rolled back.
type PartialError struct {
	Applied domain.ReconcileResult
	Failed  domain.Mutation
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s %s on %s failed after %d successful call(s): %v",
		e.Failed.Direction, e.Failed.Key, e.Applied.GroupID, e.Applied.Calls, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

type Reconciler struct {
	firewall domain.Firewall
	policy   Policy
	logger   *log.Logger
}

func New(firewall domain.Firewall, policy Policy, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		firewall: firewall,
		policy:   policy,
		logger:   logger,
	}
}

func (r *Reconciler) Policy() Policy {
	return r.policy
}

// Preview reads the current rules and returns the plan without applying it.
func (r *Reconciler) Preview(ctx context.Context, groupID string, desired []domain.CIDR) ([]domain.Mutation, error) {
	current, err := r.firewall.DescribeRules(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("read rules of %s: %w", groupID, err)
	}
	return Plan(current, desired, r.policy), nil
}

// Reconcile reads the group's rules, plans and applies the diff. A read
// failure returns before any mutation. A mutation failure returns a
// *PartialError alongside the result of the calls that succeeded.
func (r *Reconciler) Reconcile(ctx context.Context, groupID string, desired []domain.CIDR) (domain.ReconcileResult, error) {
	result := domain.ReconcileResult{GroupID: groupID}

	plan, err := r.Preview(ctx, groupID, desired)
	if err != nil {
		return result, err
	}
	if len(plan) == 0 {
		r.logger.Info("security group already in sync", "group", groupID, "http", len(desired))
		return result, nil
	}

	for _, m := range plan {
		if err := r.apply(ctx, groupID, m); err != nil {
			return result, &PartialError{Applied: result, Failed: m, Err: err}
		}
		result.Calls++
		switch {
		case m.Key == r.policy.SSH && m.Direction == domain.DirectionAuthorize:
			result.SSHAdded = true
		case m.Direction == domain.DirectionRevoke:
			result.Removed = append(result.Removed, m.CIDRs...)
		default:
			result.Added = append(result.Added, m.CIDRs...)
		}
	}
	return result, nil
}

func (r *Reconciler) apply(ctx context.Context, groupID string, m domain.Mutation) error {
	r.logger.Info("applying mutation",
		"group", groupID,
		"direction", m.Direction,
		"rule", m.Key.String(),
		"count", len(m.CIDRs),
	)
	switch m.Direction {
	case domain.DirectionRevoke:
		return r.firewall.Revoke(ctx, groupID, m.Key, m.CIDRs)
	case domain.DirectionAuthorize:
		return r.firewall.Authorize(ctx, groupID, m.Key, m.CIDRs)
	default:
		return fmt.Errorf("unknown mutation direction %q", m.Direction)
	}
}
