// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"
	"sort"
	"strings"

	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
)

// Spec enumerates every recognized cluster requirement option. Zero values
// mean "don't care". It is validated as a whole when turned into a Set; all
// construction errors surface here, never at run time.
type Spec struct {
	Edition Edition

	// Node counts: exact or minimum, mutually exclusive per pair. The
	// connected count must not exceed the total count and defaults to it.
	NumNodes        int
	MinNumNodes     int
	NumConnected    int
	MinNumConnected int

	// Memory quota in MB: exact or minimum, mutually exclusive.
	Memsize    int
	MinMemsize int

	AFamily AFamily

	// Services deployed on every node, or per node index. Mutually
	// exclusive.
	Services       []Service
	ServicesByNode map[int][]Service

	MasterPasswordState string
	NumVbuckets         int

	// Encryption is a tri-state: nil means don't care.
	Encryption *bool

	MinVersion string
}

// Set is an immutable collection of requirements, at most one per kind.
type Set struct {
	reqs map[Kind]Requirement
}

// NewSet validates the spec and builds the requirement set. Invalid
// parameter combinations fail here, synchronously.
func NewSet(spec Spec) (*Set, error) {
	s := &Set{reqs: make(map[Kind]Requirement)}

	add := func(r Requirement, err error) error {
		if err != nil {
			return err
		}
		s.reqs[r.Kind()] = r
		return nil
	}

	if spec.Edition != "" {
		if err := add(NewEdition(spec.Edition)); err != nil {
			return nil, err
		}
	}
	if spec.NumNodes != 0 || spec.MinNumNodes != 0 || spec.NumConnected != 0 || spec.MinNumConnected != 0 {
		if err := add(NewNumNodes(spec.NumNodes, spec.MinNumNodes, spec.NumConnected, spec.MinNumConnected)); err != nil {
			return nil, err
		}
	}
	if spec.Memsize != 0 || spec.MinMemsize != 0 {
		if err := add(NewMemSize(spec.Memsize, spec.MinMemsize)); err != nil {
			return nil, err
		}
	}
	if spec.AFamily != "" {
		if err := add(NewAFamily(spec.AFamily)); err != nil {
			return nil, err
		}
	}
	if spec.Services != nil && spec.ServicesByNode != nil {
		return nil, errorx.IllegalArgument.New("services and per-node services are mutually exclusive")
	}
	if spec.Services != nil {
		if err := add(NewServices(spec.Services)); err != nil {
			return nil, err
		}
	}
	if spec.ServicesByNode != nil {
		if err := add(NewServicesByNode(spec.ServicesByNode)); err != nil {
			return nil, err
		}
	}
	if spec.MasterPasswordState != "" {
		if err := add(NewMasterPasswordState(spec.MasterPasswordState)); err != nil {
			return nil, err
		}
	}
	if spec.NumVbuckets != 0 {
		if err := add(NewNumVbuckets(spec.NumVbuckets)); err != nil {
			return nil, err
		}
	}
	if spec.Encryption != nil {
		if err := add(NewN2NEncryption(*spec.Encryption)); err != nil {
			return nil, err
		}
	}
	if spec.MinVersion != "" {
		if err := add(NewMinVersion(spec.MinVersion)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Requirements returns the present requirements in fixed kind order.
func (s *Set) Requirements() []Requirement {
	out := make([]Requirement, 0, len(s.reqs))
	for _, kind := range Kinds {
		if r, ok := s.reqs[kind]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the requirement for a kind, if present.
func (s *Set) Get(kind Kind) (Requirement, bool) {
	r, ok := s.reqs[kind]
	return r, ok
}

// String renders the canonical form: requirements that cannot change after
// cluster creation first, the reconfigurable ones last, each group sorted by
// kind. Sorting grouped sets by this string therefore places configurations
// differing only in reconfigurable requirements next to each other.
func (s *Set) String() string {
	var immutable, mutable []Requirement
	for _, r := range s.Requirements() {
		if r.CanBeMet() {
			mutable = append(mutable, r)
		} else {
			immutable = append(immutable, r)
		}
	}
	byKind := func(reqs []Requirement) {
		sort.Slice(reqs, func(i, j int) bool { return reqs[i].Kind() < reqs[j].Kind() })
	}
	byKind(immutable)
	byKind(mutable)

	parts := make([]string, 0, len(immutable)+len(mutable))
	for _, r := range append(immutable, mutable...) {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ",")
}

// IsSatisfiable evaluates every requirement against the cluster and reports
// whether the cluster could serve this set: every unmet requirement must be
// repairable in place. The unmet requirements are returned either way.
func (s *Set) IsSatisfiable(ctx context.Context, c *cluster.Cluster) (bool, []Requirement, error) {
	satisfiable := true
	var unmet []Requirement
	for _, r := range s.Requirements() {
		met, err := r.IsMet(ctx, c)
		if err != nil {
			return false, nil, err
		}
		if !met {
			unmet = append(unmet, r)
			if !r.CanBeMet() {
				satisfiable = false
			}
		}
	}
	return satisfiable, unmet, nil
}

// UnmetRequirements returns the requirements the cluster does not currently
// meet, without the satisfiability rollup. Callers deciding whether to use a
// pre-existing externally supplied cluster use this directly: such clusters
// are never reconfigured.
func (s *Set) UnmetRequirements(ctx context.Context, c *cluster.Cluster) ([]Requirement, error) {
	var unmet []Requirement
	for _, r := range s.Requirements() {
		met, err := r.IsMet(ctx, c)
		if err != nil {
			return nil, err
		}
		if !met {
			unmet = append(unmet, r)
		}
	}
	return unmet, nil
}

// SatisfiedBy reports whether a cluster built to satisfy other would also
// satisfy this set: every requirement here must have a structurally equal
// counterpart in other.
func (s *Set) SatisfiedBy(other *Set) bool {
	for _, r := range s.Requirements() {
		counterpart, ok := other.reqs[r.Kind()]
		if !ok || !r.Equal(counterpart) {
			return false
		}
	}
	return true
}

// Intersect computes a single requirement set jointly satisfiable with
// other, if one exists. Per kind: an equal pair or a one-sided requirement
// carries over unchanged; differing pairs delegate to the requirement's own
// intersection.
func (s *Set) Intersect(other *Set) (*Set, bool) {
	merged := &Set{reqs: make(map[Kind]Requirement)}
	for _, kind := range Kinds {
		r1, ok1 := s.reqs[kind]
		r2, ok2 := other.reqs[kind]
		switch {
		case !ok1 && !ok2:
		case !ok1:
			merged.reqs[kind] = r2
		case !ok2:
			merged.reqs[kind] = r1
		case r1.Equal(r2):
			merged.reqs[kind] = r1
		default:
			r, ok := r1.Intersect(r2)
			if !ok {
				return nil, false
			}
			merged.reqs[kind] = r
		}
	}
	return merged, true
}

// StartArgs derives the collaborator's start parameters: each requirement's
// contribution layered over deterministic defaults.
func (s *Set) StartArgs() cluster.Args {
	args := cluster.Args{
		// Keep the first node's name stable when others join; renaming
		// complicates node removal and addition suites.
		"dont_rename":    true,
		"wait_for_start": true,
		// Node output interleaved with test output is unreadable.
		"nooutput":  true,
		"num_nodes": 1,
		// Few vbuckets rebalance much faster; suites that need the
		// production count declare it as a requirement.
		"num_vbuckets": 16,
		// External authentication bypass must be pinned for
		// deterministic authentication behavior.
		"env": map[string]any{"BYPASS_SASLAUTHD": nil},
	}
	for _, r := range s.Requirements() {
		args.Merge(r.StartArgs())
	}
	return args
}

// ConnectArgs derives the collaborator's connect parameters from the start
// parameters and the requirements.
func (s *Set) ConnectArgs(startArgs cluster.Args) cluster.Args {
	numNodes, _ := startArgs.Int("num_nodes")
	args := cluster.Args{
		"protocol":  "ipv4",
		"num_nodes": numNodes,
		// Suites create buckets in their own setup; bucket creation as
		// a requirement would just slow every group down.
		"create_bucket": false,
	}
	for _, r := range s.Requirements() {
		args.Merge(r.ConnectArgs())
	}
	return args
}

// FormatList renders a requirement list for error messages.
func FormatList(reqs []Requirement) string {
	parts := make([]string, 0, len(reqs))
	for _, r := range reqs {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}
