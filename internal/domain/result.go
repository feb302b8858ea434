package domain

type ReconcileResult struct {
	GroupID  string
	Added    []CIDR
	Removed  []CIDR
	SSHAdded bool
	Calls    int
}

func (r ReconcileResult) Changed() bool {
	return r.SSHAdded || len(r.Added) > 0 || len(r.Removed) > 0
}
