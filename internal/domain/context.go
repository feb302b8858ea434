package domain

import "context"

type FirewallReader interface {
	DescribeRules(ctx context.Context, groupID string) (RuleSet, error)
}

type FirewallWriter interface {
	Authorize(ctx context.Context, groupID string, key RuleKey, cidrs []CIDR) error
	Revoke(ctx context.Context, groupID string, key RuleKey, cidrs []CIDR) error
}

type Firewall interface {
	FirewallReader
	FirewallWriter
}

type GroupResolver interface {
	FindTargetGroup(ctx context.Context) (SecurityGroup, error)
}

type AddressSource interface {
	CurrentAddress(ctx context.Context) (CIDR, error)
}

type RangeSource interface {
	PublishedRanges(ctx context.Context) ([]CIDR, error)
}

type Committer interface {
	CommitAndPush(ctx context.Context, path, message string) (bool, error)
}
