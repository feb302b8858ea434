package domain

type Direction string

const (
	DirectionAuthorize Direction = "authorize"
	DirectionRevoke    Direction = "revoke"
)

type Mutation struct {
	Direction Direction
	Key       RuleKey
	CIDRs     []CIDR
}

type SecurityGroup struct {
	ID    string
	Name  string
	VPCID string
}
