package aws

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/eleven-am/sgsync/internal/domain"
)

// GroupLookup describes how the target group is located. GroupID wins when
// set. Otherwise GroupName is tried, then, if allowed, any group with SSHPort
// open to AllAddresses.
type GroupLookup struct {
	GroupID        string
	GroupName      string
	AllowHeuristic bool
	SSHPort        int
	AllAddresses   domain.CIDR
}

type GroupResolver struct {
	client *Client
	lookup GroupLookup
}

var _ domain.GroupResolver = (*GroupResolver)(nil)

func (c *Client) NewGroupResolver(lookup GroupLookup) *GroupResolver {
	return &GroupResolver{client: c, lookup: lookup}
}

func (r *GroupResolver) FindTargetGroup(ctx context.Context) (domain.SecurityGroup, error) {
	if r.lookup.GroupID != "" {
		return r.client.GetSecurityGroup(ctx, r.lookup.GroupID)
	}

	if r.lookup.GroupName != "" {
		groups, err := r.client.describeGroups(ctx, []ec2types.Filter{
			{Name: aws.String("group-name"), Values: []string{r.lookup.GroupName}},
		})
		if err != nil {
			return domain.SecurityGroup{}, fmt.Errorf("find security group by name %s: %w", r.lookup.GroupName, err)
		}
		if sg, ok, err := single("group name "+r.lookup.GroupName, toSecurityGroups(groups)); ok || err != nil {
			return sg, err
		}
		r.client.logger.Warn("no security group with configured name", "name", r.lookup.GroupName)
	}

	if !r.lookup.AllowHeuristic {
		return domain.SecurityGroup{}, domain.ErrGroupNotFound
	}

	cidrFilter := "ip-permission.cidr"
	if isIPv6(r.lookup.AllAddresses) {
		cidrFilter = "ip-permission.ipv6-cidr"
	}
	port := strconv.Itoa(r.lookup.SSHPort)
	candidates, err := r.client.describeGroups(ctx, []ec2types.Filter{
		{Name: aws.String("ip-permission.from-port"), Values: []string{port}},
		{Name: aws.String("ip-permission.to-port"), Values: []string{port}},
		{Name: aws.String(cidrFilter), Values: []string{string(r.lookup.AllAddresses)}},
	})
	if err != nil {
		return domain.SecurityGroup{}, fmt.Errorf("find security group by open port %s: %w", port, err)
	}
	// EC2 matches each ip-permission filter against any permission of the
	// group, so the port and the CIDR may come from different rules.
	var groups []domain.SecurityGroup
	for i := range candidates {
		if opensPortTo(candidates[i].IpPermissions, r.lookup.SSHPort, r.lookup.AllAddresses) {
			groups = append(groups, toSecurityGroup(&candidates[i]))
		}
	}
	lookup := fmt.Sprintf("port %s open to %s", port, r.lookup.AllAddresses)
	sg, ok, err := single(lookup, groups)
	if err != nil {
		return domain.SecurityGroup{}, err
	}
	if !ok {
		return domain.SecurityGroup{}, domain.ErrGroupNotFound
	}
	r.client.logger.Info("security group found by open ssh heuristic", "group", sg.ID, "name", sg.Name)
	return sg, nil
}

func (c *Client) GetSecurityGroup(ctx context.Context, groupID string) (domain.SecurityGroup, error) {
	sg, err := c.describeGroup(ctx, groupID)
	if err != nil {
		return domain.SecurityGroup{}, err
	}
	return toSecurityGroup(sg), nil
}

func (c *Client) describeGroup(ctx context.Context, groupID string) (*ec2types.SecurityGroup, error) {
	out, err := c.ec2Client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{groupID},
	})
	if err != nil {
		if apiErrorCode(err) == errCodeGroupNotFound {
			return nil, fmt.Errorf("security group %s: %w", groupID, domain.ErrGroupNotFound)
		}
		return nil, fmt.Errorf("describe security group %s: %w", groupID, err)
	}
	if len(out.SecurityGroups) == 0 {
		return nil, fmt.Errorf("security group %s: %w", groupID, domain.ErrGroupNotFound)
	}
	return &out.SecurityGroups[0], nil
}

func (c *Client) describeGroups(ctx context.Context, filters []ec2types.Filter) ([]ec2types.SecurityGroup, error) {
	paginator := ec2.NewDescribeSecurityGroupsPaginator(c.ec2Client, &ec2.DescribeSecurityGroupsInput{
		Filters: filters,
	})
	return CollectPages(
		ctx,
		paginator.HasMorePages,
		func(ctx context.Context) (*ec2.DescribeSecurityGroupsOutput, error) {
			return paginator.NextPage(ctx)
		},
		func(out *ec2.DescribeSecurityGroupsOutput) []ec2types.SecurityGroup {
			return out.SecurityGroups
		},
	)
}

// opensPortTo reports whether a single permission opens port to cidr.
func opensPortTo(perms []ec2types.IpPermission, port int, cidr domain.CIDR) bool {
	for key, set := range toRuleSet(perms) {
		if key.Port == port && set.Has(cidr) {
			return true
		}
	}
	return false
}

func single(lookup string, groups []domain.SecurityGroup) (domain.SecurityGroup, bool, error) {
	switch len(groups) {
	case 0:
		return domain.SecurityGroup{}, false, nil
	case 1:
		return groups[0], true, nil
	default:
		ids := make([]string, len(groups))
		for i, g := range groups {
			ids[i] = g.ID
		}
		return domain.SecurityGroup{}, false, &domain.AmbiguousGroupError{Lookup: lookup, Candidates: ids}
	}
}
