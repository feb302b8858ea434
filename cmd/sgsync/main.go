package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/charmbracelet/log"

	"github.com/eleven-am/sgsync/internal/aws"
	"github.com/eleven-am/sgsync/internal/config"
	"github.com/eleven-am/sgsync/internal/domain"
	"github.com/eleven-am/sgsync/internal/ipsource"
	"github.com/eleven-am/sgsync/internal/logging"
	"github.com/eleven-am/sgsync/internal/vcs"
	"github.com/eleven-am/sgsync/pkg/sgsync"
)

func main() {
	// A missing .env is normal outside local development.
	if err := config.LoadDotEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}

	logger, err := logging.New(os.Stderr, cfg.Run.LogLevel, cfg.Run.LogFormat)
	if err != nil {
		log.Fatal("Invalid logging configuration", "error", err)
	}

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("sync failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	awsCfg, err := aws.LoadConfig(ctx, aws.SessionOptions{
		Region:        cfg.AWS.Region,
		DefaultRegion: cfg.AWS.DefaultRegion,
		Profile:       cfg.AWS.Profile,
		RoleARN:       cfg.AWS.RoleARN,
	})
	if err != nil {
		return err
	}

	if id, err := aws.CallerIdentity(ctx, sts.NewFromConfig(awsCfg)); err != nil {
		logger.Warn("could not determine caller identity", "error", err)
	} else {
		logger.Info("using AWS identity", "account", id.AccountID, "arn", id.ARN, "region", awsCfg.Region)
	}

	path, err := filepath.Abs(cfg.Store.Path)
	if err != nil {
		return err
	}

	client := aws.NewClient(awsCfg, logger)
	policy := sgsync.Policy{
		SSH:          domain.RuleKey{Protocol: cfg.Rules.Protocol, Port: cfg.Rules.SSHPort},
		HTTP:         domain.RuleKey{Protocol: cfg.Rules.Protocol, Port: cfg.Rules.HTTPPort},
		AllAddresses: domain.CIDR(cfg.Rules.AllAddresses),
	}

	opts := sgsync.Options{
		Addresses: ipsource.NewCheckIP(cfg.Sources.CheckIPURL, cfg.Sources.HTTPTimeout),
		Ranges:    ipsource.NewRangeList(cfg.Sources.RangesURL, cfg.Sources.HTTPTimeout),
		Groups: client.NewGroupResolver(aws.GroupLookup{
			GroupID:        cfg.Group.ID,
			GroupName:      cfg.Group.Name,
			AllowHeuristic: cfg.Group.AllowHeuristic,
			SSHPort:        cfg.Rules.SSHPort,
			AllAddresses:   policy.AllAddresses,
		}),
		Firewall:      client,
		Policy:        policy,
		ConfigPath:    path,
		CommitMessage: cfg.Git.CommitMessage,
		DryRun:        cfg.Run.DryRun,
		Logger:        logger,
	}
	if cfg.Git.Enabled {
		opts.Committer = vcs.NewGit(vcs.ExecRunner{}, vcs.Options{
			Dir:  cfg.Git.Dir,
			Pull: cfg.Git.Pull,
			Push: cfg.Git.Push,
		}, logger)
	}

	_, err = sgsync.Run(ctx, opts)
	return err
}
