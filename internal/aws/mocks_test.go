package aws

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

type mockEC2 struct {
	describe     func(*ec2.DescribeSecurityGroupsInput) (*ec2.DescribeSecurityGroupsOutput, error)
	authorize    func(*ec2.AuthorizeSecurityGroupIngressInput) error
	revoke       func(*ec2.RevokeSecurityGroupIngressInput) error
	authorizeErr error
	revokeErr    error
	revokeOut    *ec2.RevokeSecurityGroupIngressOutput

	describeInputs  []*ec2.DescribeSecurityGroupsInput
	authorizeInputs []*ec2.AuthorizeSecurityGroupIngressInput
	revokeInputs    []*ec2.RevokeSecurityGroupIngressInput
}

func (m *mockEC2) DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	m.describeInputs = append(m.describeInputs, params)
	if m.describe == nil {
		return nil, errors.New("describe not configured")
	}
	return m.describe(params)
}

func (m *mockEC2) AuthorizeSecurityGroupIngress(ctx context.Context, params *ec2.AuthorizeSecurityGroupIngressInput, optFns ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	m.authorizeInputs = append(m.authorizeInputs, params)
	if m.authorize != nil {
		if err := m.authorize(params); err != nil {
			return nil, err
		}
		return &ec2.AuthorizeSecurityGroupIngressOutput{}, nil
	}
	if m.authorizeErr != nil {
		return nil, m.authorizeErr
	}
	return &ec2.AuthorizeSecurityGroupIngressOutput{}, nil
}

func (m *mockEC2) RevokeSecurityGroupIngress(ctx context.Context, params *ec2.RevokeSecurityGroupIngressInput, optFns ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupIngressOutput, error) {
	m.revokeInputs = append(m.revokeInputs, params)
	if m.revoke != nil {
		if err := m.revoke(params); err != nil {
			return nil, err
		}
		return &ec2.RevokeSecurityGroupIngressOutput{}, nil
	}
	if m.revokeErr != nil {
		return nil, m.revokeErr
	}
	if m.revokeOut != nil {
		return m.revokeOut, nil
	}
	return &ec2.RevokeSecurityGroupIngressOutput{}, nil
}

func filterValue(filters []ec2types.Filter, name string) (string, bool) {
	for _, f := range filters {
		if f.Name != nil && *f.Name == name && len(f.Values) > 0 {
			return f.Values[0], true
		}
	}
	return "", false
}

type mockSTS struct {
	assumeOut   *sts.AssumeRoleOutput
	assumeErr   error
	identityOut *sts.GetCallerIdentityOutput
	identityErr error
	assumeInput *sts.AssumeRoleInput
}

func (m *mockSTS) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	m.assumeInput = params
	return m.assumeOut, m.assumeErr
}

func (m *mockSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.identityOut, m.identityErr
}
