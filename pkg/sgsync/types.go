package sgsync

import (
	"github.com/eleven-am/sgsync/internal/domain"
	"github.com/eleven-am/sgsync/internal/reconciler"
)

type CIDR = domain.CIDR

type RuleKey = domain.RuleKey

type RuleSet = domain.RuleSet

type Mutation = domain.Mutation

type SecurityGroup = domain.SecurityGroup

type ReconcileResult = domain.ReconcileResult

type Policy = reconciler.Policy

type (
	PartialError  = reconciler.PartialError
	BlockingError = domain.BlockingError
)

type (
	AddressSource = domain.AddressSource
	RangeSource   = domain.RangeSource
	GroupResolver = domain.GroupResolver
	Firewall      = domain.Firewall
	Committer     = domain.Committer
)

var (
	ErrGroupNotFound  = domain.ErrGroupNotFound
	ErrAmbiguousGroup = domain.ErrAmbiguousGroup
	ErrConfigNotFound = domain.ErrConfigNotFound
)

// DefaultPolicy owns tcp/22 open to 0.0.0.0/0 and tcp/80 for the allow-list.
func DefaultPolicy() Policy {
	return reconciler.DefaultPolicy()
}
