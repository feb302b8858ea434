package sgsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/eleven-am/sgsync/internal/domain"
	"github.com/eleven-am/sgsync/internal/reconciler"
	"github.com/eleven-am/sgsync/internal/store"
)

// Options wires the collaborators of a sync run. Committer may be nil to
// skip the version control step.
type Options struct {
	Addresses     AddressSource
	Ranges        RangeSource
	Groups        GroupResolver
	Firewall      Firewall
	Committer     Committer
	Policy        Policy
	ConfigPath    string
	CommitMessage string
	DryRun        bool
	Logger        *log.Logger
}

// Report describes what a run observed and changed.
type Report struct {
	RunID         string
	Group         SecurityGroup
	Desired       []CIDR
	Planned       []Mutation
	Result        ReconcileResult
	ConfigChanged bool
	VerifyErr     error
	Committed     bool
	CommitErr     error
}

// Run performs a single convergence pass: resolve the desired allow-list,
// load the config document, locate the group, reconcile its ingress rules,
// persist the new allow-list and commit it.
//
// Any error returned is fatal. Mutations applied before a failure are kept
// and reported in Report.Result. A failed read-back check or commit is
// logged and recorded in the report without failing the run.
func Run(ctx context.Context, opts Options) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	if err := opts.validate(); err != nil {
		return report, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("run", report.RunID)

	home, err := opts.Addresses.CurrentAddress(ctx)
	if err != nil {
		return report, err
	}
	logger.Info("resolved public address", "cidr", home)

	ranges, err := opts.Ranges.PublishedRanges(ctx)
	if err != nil {
		return report, err
	}
	logger.Info("fetched published ranges", "count", len(ranges))

	report.Desired = domain.DesiredHTTP(home, ranges)

	doc, err := store.Load(opts.ConfigPath)
	if err != nil {
		return report, err
	}
	if prev := domain.NewCIDRSet(doc.HTTP()...); !prev.Equal(domain.NewCIDRSet(report.Desired...)) {
		logger.Info("allow-list differs from recorded config",
			"file", opts.ConfigPath,
			"recorded", len(prev),
			"desired", len(report.Desired),
		)
	}

	report.Group, err = opts.Groups.FindTargetGroup(ctx)
	if err != nil {
		return report, fmt.Errorf("resolve target group: %w", err)
	}
	logger.Info("found security group", "group", report.Group.ID, "name", report.Group.Name, "vpc", report.Group.VPCID)

	rec := reconciler.New(opts.Firewall, opts.Policy, logger)

	if opts.DryRun {
		report.Planned, err = rec.Preview(ctx, report.Group.ID, report.Desired)
		if err != nil {
			return report, err
		}
		for _, m := range report.Planned {
			logger.Info("planned mutation", "direction", m.Direction, "rule", m.Key.String(), "cidrs", domain.Strings(m.CIDRs))
		}
		_, err = updateDocument(doc, report.Desired, opts.Policy, opts.ConfigPath, logger)
		if err != nil {
			return report, err
		}
		logger.Info("dry run complete, nothing applied", "mutations", len(report.Planned))
		return report, nil
	}

	report.Result, err = rec.Reconcile(ctx, report.Group.ID, report.Desired)
	if err != nil {
		var partial *reconciler.PartialError
		if errors.As(err, &partial) {
			logger.Error("reconciliation stopped part way",
				"applied_calls", partial.Applied.Calls,
				"ssh_added", partial.Applied.SSHAdded,
				"removed", len(partial.Applied.Removed),
				"added", len(partial.Applied.Added),
			)
		}
		return report, err
	}
	logger.Info("security group synced",
		"group", report.Group.ID,
		"ssh_added", report.Result.SSHAdded,
		"removed", len(report.Result.Removed),
		"added", len(report.Result.Added),
		"calls", report.Result.Calls,
	)

	if report.Result.Changed() {
		if report.VerifyErr = rec.Verify(ctx, report.Group.ID, home); report.VerifyErr != nil {
			logger.Warn("group does not match after sync", "error", report.VerifyErr)
		}
	}

	data, err := updateDocument(doc, report.Desired, opts.Policy, opts.ConfigPath, logger)
	if err != nil {
		return report, err
	}
	if data != nil {
		if err := doc.Save(opts.ConfigPath); err != nil {
			return report, err
		}
		report.ConfigChanged = true
		logger.Info("updated config", "file", opts.ConfigPath)
	}

	if opts.Committer == nil {
		return report, nil
	}
	report.Committed, report.CommitErr = opts.Committer.CommitAndPush(ctx, opts.ConfigPath, opts.CommitMessage)
	if report.CommitErr != nil {
		logger.Warn("git operation failed", "error", report.CommitErr)
	}
	return report, nil
}

// updateDocument applies the desired allow-list to doc and returns the new
// bytes, or nil when the document is unchanged.
func updateDocument(doc *store.Document, desired []CIDR, policy Policy, path string, logger *log.Logger) ([]byte, error) {
	doc.SetHTTP(desired)
	doc.EnsureSSH([]CIDR{policy.AllAddresses})

	data, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	diff := store.Diff(path, doc.Original(), data)
	if diff == "" {
		return nil, nil
	}
	logger.Debug("config change\n" + diff)
	return data, nil
}

func (o Options) validate() error {
	switch {
	case o.Addresses == nil:
		return errors.New("sgsync: Addresses is required")
	case o.Ranges == nil:
		return errors.New("sgsync: Ranges is required")
	case o.Groups == nil:
		return errors.New("sgsync: Groups is required")
	case o.Firewall == nil:
		return errors.New("sgsync: Firewall is required")
	case o.ConfigPath == "":
		return errors.New("sgsync: ConfigPath is required")
	}
	return nil
}
