package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGroupNotFound  = errors.New("target security group not found")
	ErrAmbiguousGroup = errors.New("target security group is ambiguous")
	ErrConfigNotFound = errors.New("config file not found")
)

// AmbiguousGroupError lists every group a lookup matched. Callers must pick
// one explicitly.
type AmbiguousGroupError struct {
	Lookup     string
	Candidates []string
}

func (e *AmbiguousGroupError) Error() string {
	return fmt.Sprintf("%s matched %d security groups (%s); set SGSYNC_GROUP_ID to choose one",
		e.Lookup, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousGroupError) Unwrap() error {
	return ErrAmbiguousGroup
}

// BlockingError reports that a group does not admit Source on Rule.
type BlockingError struct {
	GroupID string
	Rule    RuleKey
	Source  CIDR
}

func (e *BlockingError) Error() string {
	return fmt.Sprintf("%s: no %s ingress rule allows %s", e.GroupID, e.Rule, e.Source)
}
