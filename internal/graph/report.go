package graph

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/nodular/internal/nodeid"
)

// Status is the result of a node within one evaluation pass.
type Status int

const (
	// StatusPending means the node was never reached, e.g. the pass was canceled.
	StatusPending Status = iota
	// StatusCompleted means the node's last run succeeded.
	StatusCompleted
	// StatusFailed means the node failed to compile or its last run failed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome records what happened to one node during a pass.
type Outcome struct {
	Status Status
	// Runs counts how often Run was called. Above one only with WithReentrantWalk.
	Runs       int
	CompileErr error
	RunErr     error
}

// Err returns the compile error if there was one, otherwise the run error.
func (o Outcome) Err() error {
	if o.CompileErr != nil {
		return o.CompileErr
	}
	return o.RunErr
}

// Report summarizes an evaluation pass.
type Report struct {
	// Order lists node ids in the order they were executed, repeats included.
	Order []nodeid.ID

	nodes    []nodeid.ID
	outcomes map[nodeid.ID]*Outcome
}

func newReport(ids []nodeid.ID) *Report {
	r := &Report{
		nodes:    ids,
		outcomes: make(map[nodeid.ID]*Outcome, len(ids)),
	}
	for _, id := range ids {
		r.outcomes[id] = &Outcome{}
	}
	return r
}

// Outcome returns the outcome of a node of the pass.
func (r *Report) Outcome(id nodeid.ID) (Outcome, bool) {
	o, ok := r.outcomes[id]
	if !ok {
		return Outcome{}, false
	}
	return *o, true
}

// Runs is shorthand for the Runs field of the node's outcome.
func (r *Report) Runs(id nodeid.ID) int {
	if o, ok := r.outcomes[id]; ok {
		return o.Runs
	}
	return 0
}

// Failed returns the ids of failed nodes in graph order.
func (r *Report) Failed() []nodeid.ID {
	var failed []nodeid.ID
	for _, id := range r.nodes {
		if r.outcomes[id].Status == StatusFailed {
			failed = append(failed, id)
		}
	}
	return failed
}

// Err aggregates every node failure of the pass, or returns nil.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, id := range r.Failed() {
		result = multierror.Append(result, r.outcomes[id].Err())
	}
	return result.ErrorOrNil()
}

// outcome returns the node's outcome, creating it for nodes added mid-pass.
func (r *Report) outcome(id nodeid.ID) *Outcome {
	o, ok := r.outcomes[id]
	if !ok {
		o = &Outcome{}
		r.outcomes[id] = o
		r.nodes = append(r.nodes, id)
	}
	return o
}

func (r *Report) compileFailed(id nodeid.ID, err error) {
	o := r.outcome(id)
	o.CompileErr = err
	o.Status = StatusFailed
}

func (r *Report) ran(id nodeid.ID, err error) {
	r.Order = append(r.Order, id)
	o := r.outcome(id)
	o.Runs++
	o.RunErr = err
	if err != nil || o.CompileErr != nil {
		o.Status = StatusFailed
		return
	}
	o.Status = StatusCompleted
}
