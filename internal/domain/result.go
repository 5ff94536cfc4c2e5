package domain

import "sort"

// Outcome is what a reconciliation did for one address family
type Outcome int

const (
	Skipped Outcome = iota
	Unchanged
	Updated
	Created
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case Created:
		return "created"
	default:
		return "unknown"
	}
}

// Changed reports whether a write was issued
func (o Outcome) Changed() bool {
	return o == Updated || o == Created
}

// Result holds the per-family outcomes of reconciling one hostname
type Result struct {
	Hostname string
	FQDN     string
	A        Outcome
	AAAA     Outcome
	// Addresses published or confirmed, keyed by record type
	Addresses map[RecordType]string
}

// Set records the outcome for a family
func (r *Result) Set(f IPFamily, o Outcome) {
	if f == IPv6 {
		r.AAAA = o
		return
	}
	r.A = o
}

// Get returns the outcome for a family
func (r *Result) Get(f IPFamily) Outcome {
	if f == IPv6 {
		return r.AAAA
	}
	return r.A
}

// Changed reports whether any family was created or updated
func (r *Result) Changed() bool {
	return r.A.Changed() || r.AAAA.Changed()
}

// HostnameReport is the captured result or error of one hostname
type HostnameReport struct {
	Hostname string
	Result   *Result
	Err      error
}

// Report aggregates a whole run
type Report struct {
	Hostnames []HostnameReport
}

// Sort orders the report by hostname name
func (r *Report) Sort() {
	sort.Slice(r.Hostnames, func(i, j int) bool {
		return r.Hostnames[i].Hostname < r.Hostnames[j].Hostname
	})
}

// Failed returns the number of hostnames that ended in an error
func (r *Report) Failed() int {
	n := 0
	for _, h := range r.Hostnames {
		if h.Err != nil {
			n++
		}
	}
	return n
}

// Changed returns the number of hostnames with at least one write
func (r *Report) Changed() int {
	n := 0
	for _, h := range r.Hostnames {
		if h.Err == nil && h.Result != nil && h.Result.Changed() {
			n++
		}
	}
	return n
}

// ExitCode is 0 when every hostname reconciled, 1 otherwise
func (r *Report) ExitCode() int {
	if r.Failed() > 0 {
		return 1
	}
	return 0
}
