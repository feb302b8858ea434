package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type SessionOptions struct {
	Region        string
	DefaultRegion string
	Profile       string
	RoleARN       string
	SessionName   string
}

type Identity struct {
	AccountID string
	ARN       string
}

// LoadConfig resolves the SDK configuration from the default chain. When no
// region is configured anywhere DefaultRegion is used. A RoleARN swaps the
// credentials for the assumed role's.
func LoadConfig(ctx context.Context, opts SessionOptions) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = opts.DefaultRegion
	}

	if opts.RoleARN == "" {
		return cfg, nil
	}
	return AssumeRole(ctx, cfg, sts.NewFromConfig(cfg), opts.RoleARN, opts.SessionName)
}

func AssumeRole(ctx context.Context, cfg aws.Config, client STSAPI, roleARN, sessionName string) (aws.Config, error) {
	if sessionName == "" {
		sessionName = "sgsync"
	}
	out, err := client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleARN),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: aws.Int32(3600),
	})
	if err != nil {
		return aws.Config{}, fmt.Errorf("assume role %s: %w", roleARN, err)
	}
	if out.Credentials == nil {
		return aws.Config{}, fmt.Errorf("assume role %s: no credentials returned", roleARN)
	}

	assumed := cfg.Copy()
	assumed.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		derefString(out.Credentials.AccessKeyId),
		derefString(out.Credentials.SecretAccessKey),
		derefString(out.Credentials.SessionToken),
	))
	return assumed, nil
}

func CallerIdentity(ctx context.Context, client STSAPI) (Identity, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("get caller identity: %w", err)
	}
	return Identity{
		AccountID: derefString(out.Account),
		ARN:       derefString(out.Arn),
	}, nil
}
