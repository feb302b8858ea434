package aws

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/eleven-am/sgsync/internal/domain"
)

// toRuleSet keys every single-port permission by protocol and port. Port
// ranges and all-traffic permissions are not owned by the sync and are
// left out.
func toRuleSet(perms []ec2types.IpPermission) domain.RuleSet {
	rules := domain.RuleSet{}
	for _, perm := range perms {
		if perm.FromPort == nil || perm.ToPort == nil {
			continue
		}
		from, to := derefInt32(perm.FromPort), derefInt32(perm.ToPort)
		if from != to || from < 0 {
			continue
		}
		key := domain.RuleKey{
			Protocol: protocolNumberToString(derefString(perm.IpProtocol)),
			Port:     int(from),
		}
		if _, ok := rules[key]; !ok {
			rules[key] = domain.CIDRSet{}
		}
		for _, r := range perm.IpRanges {
			if r.CidrIp != nil {
				rules.Add(key, domain.CIDR(*r.CidrIp))
			}
		}
		for _, r := range perm.Ipv6Ranges {
			if r.CidrIpv6 != nil {
				rules.Add(key, domain.CIDR(*r.CidrIpv6))
			}
		}
	}
	return rules
}

func toIPPermission(key domain.RuleKey, cidrs []domain.CIDR) ec2types.IpPermission {
	perm := ec2types.IpPermission{
		IpProtocol: aws.String(key.Protocol),
		FromPort:   aws.Int32(int32(key.Port)),
		ToPort:     aws.Int32(int32(key.Port)),
	}
	for _, c := range cidrs {
		if isIPv6(c) {
			perm.Ipv6Ranges = append(perm.Ipv6Ranges, ec2types.Ipv6Range{CidrIpv6: aws.String(string(c))})
			continue
		}
		perm.IpRanges = append(perm.IpRanges, ec2types.IpRange{CidrIp: aws.String(string(c))})
	}
	return perm
}

func toSecurityGroup(sg *ec2types.SecurityGroup) domain.SecurityGroup {
	return domain.SecurityGroup{
		ID:    derefString(sg.GroupId),
		Name:  derefString(sg.GroupName),
		VPCID: derefString(sg.VpcId),
	}
}

func toSecurityGroups(groups []ec2types.SecurityGroup) []domain.SecurityGroup {
	var out []domain.SecurityGroup
	for i := range groups {
		out = append(out, toSecurityGroup(&groups[i]))
	}
	return out
}

func isIPv6(c domain.CIDR) bool {
	return strings.Contains(string(c), ":")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt32(i *int32) int32 {
	if i == nil {
		return 0
	}
	return *i
}

func protocolNumberToString(proto string) string {
	switch proto {
	case "6":
		return "tcp"
	case "17":
		return "udp"
	case "1":
		return "icmp"
	default:
		return strings.ToLower(proto)
	}
}
