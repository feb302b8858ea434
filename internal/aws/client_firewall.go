package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/eleven-am/sgsync/internal/domain"
)

const (
	errCodeDuplicatePermission = "InvalidPermission.Duplicate"
	errCodePermissionNotFound  = "InvalidPermission.NotFound"
	errCodeGroupNotFound       = "InvalidGroup.NotFound"
)

var _ domain.Firewall = (*Client)(nil)

func (c *Client) DescribeRules(ctx context.Context, groupID string) (domain.RuleSet, error) {
	sg, err := c.describeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return toRuleSet(sg.IpPermissions), nil
}

// Authorize adds all cidrs to the rule in a single call. EC2 rejects the
// whole batch when any entry already exists, so a duplicate response on a
// batch is retried one CIDR at a time and duplicates are skipped.
func (c *Client) Authorize(ctx context.Context, groupID string, key domain.RuleKey, cidrs []domain.CIDR) error {
	if len(cidrs) == 0 {
		return nil
	}
	err := c.authorize(ctx, groupID, key, cidrs)
	if err == nil {
		return nil
	}
	if apiErrorCode(err) != errCodeDuplicatePermission {
		return fmt.Errorf("authorize %s ingress on %s: %w", key, groupID, err)
	}
	if len(cidrs) == 1 {
		c.logger.Warn("ingress already present", "group", groupID, "rule", key.String(), "cidr", cidrs[0])
		return nil
	}

	c.logger.Warn("batch rejected as duplicate, authorizing individually",
		"group", groupID,
		"rule", key.String(),
		"count", len(cidrs),
	)
	for _, cidr := range cidrs {
		err := c.authorize(ctx, groupID, key, []domain.CIDR{cidr})
		switch {
		case err == nil:
		case apiErrorCode(err) == errCodeDuplicatePermission:
			c.logger.Debug("ingress already present", "group", groupID, "rule", key.String(), "cidr", cidr)
		default:
			return fmt.Errorf("authorize %s ingress %s on %s: %w", key, cidr, groupID, err)
		}
	}
	return nil
}

// Revoke removes all cidrs from the rule in a single call. A not-found
// response on a batch is retried one CIDR at a time and missing entries
// are skipped.
func (c *Client) Revoke(ctx context.Context, groupID string, key domain.RuleKey, cidrs []domain.CIDR) error {
	if len(cidrs) == 0 {
		return nil
	}
	err := c.revoke(ctx, groupID, key, cidrs)
	if err == nil {
		return nil
	}
	if apiErrorCode(err) != errCodePermissionNotFound {
		return fmt.Errorf("revoke %s ingress on %s: %w", key, groupID, err)
	}
	if len(cidrs) == 1 {
		c.logger.Warn("ingress already absent", "group", groupID, "rule", key.String(), "cidr", cidrs[0])
		return nil
	}

	c.logger.Warn("batch rejected as not found, revoking individually",
		"group", groupID,
		"rule", key.String(),
		"count", len(cidrs),
	)
	for _, cidr := range cidrs {
		err := c.revoke(ctx, groupID, key, []domain.CIDR{cidr})
		switch {
		case err == nil:
		case apiErrorCode(err) == errCodePermissionNotFound:
			c.logger.Debug("ingress already absent", "group", groupID, "rule", key.String(), "cidr", cidr)
		default:
			return fmt.Errorf("revoke %s ingress %s on %s: %w", key, cidr, groupID, err)
		}
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, groupID string, key domain.RuleKey, cidrs []domain.CIDR) error {
	_, err := c.ec2Client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       &groupID,
		IpPermissions: []ec2types.IpPermission{toIPPermission(key, cidrs)},
	})
	return err
}

func (c *Client) revoke(ctx context.Context, groupID string, key domain.RuleKey, cidrs []domain.CIDR) error {
	out, err := c.ec2Client.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
		GroupId:       &groupID,
		IpPermissions: []ec2types.IpPermission{toIPPermission(key, cidrs)},
	})
	if err != nil {
		return err
	}
	if out != nil && len(out.UnknownIpPermissions) > 0 {
		c.logger.Warn("revoke skipped unknown permissions",
			"group", groupID,
			"rule", key.String(),
			"unknown", len(out.UnknownIpPermissions),
		)
	}
	return nil
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
