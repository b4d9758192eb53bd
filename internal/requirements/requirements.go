// SPDX-License-Identifier: Apache-2.0

// Package requirements models a test suite's required cluster configuration
// as a comparable, intersectable set of per-dimension constraints, and
// decides whether a live cluster satisfies them.
package requirements

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"clusterharness/internal/cluster"
)

// Kind names one dimension of cluster configuration. The set of kinds is
// fixed; a Set holds at most one requirement per kind.
type Kind string

const (
	KindEdition             Kind = "edition"
	KindNumNodes            Kind = "num_nodes"
	KindMemSize             Kind = "memsize"
	KindAFamily             Kind = "afamily"
	KindServices            Kind = "services"
	KindMasterPasswordState Kind = "master_password_state"
	KindNumVbuckets         Kind = "num_vbuckets"
	KindEncryption          Kind = "encryption"
	KindMinVersion          Kind = "min_version"
)

// Kinds is the fixed evaluation order.
var Kinds = []Kind{
	KindEdition,
	KindNumNodes,
	KindMemSize,
	KindAFamily,
	KindServices,
	KindMasterPasswordState,
	KindNumVbuckets,
	KindEncryption,
	KindMinVersion,
}

// Requirement is a single constraint on cluster configuration.
type Requirement interface {
	Kind() Kind

	// String renders the non-empty constraint parameters as sorted
	// key=value pairs. Used for display and as part of the Set sort key,
	// never for equality.
	String() string

	// Equal compares structurally: same kind, same declared fields.
	Equal(other Requirement) bool

	// IsMet checks the requirement against the cluster's observed state.
	// It must not mutate the cluster.
	IsMet(ctx context.Context, c *cluster.Cluster) (bool, error)

	// CanBeMet reports whether an already-provisioned cluster can be
	// reconfigured in place to satisfy this requirement.
	CanBeMet() bool

	// MakeMet performs the in-place reconfiguration. It fails for
	// requirements that cannot change after cluster creation.
	MakeMet(ctx context.Context, c *cluster.Cluster) error

	// Intersect merges two same-kind requirements when a single cluster
	// can satisfy both. Kinds without merge semantics always report
	// false, forcing separate clusters.
	Intersect(other Requirement) (Requirement, bool)

	// StartArgs and ConnectArgs contribute collaborator parameters needed
	// at cluster start and connect time.
	StartArgs() cluster.Args
	ConnectArgs() cluster.Args
}

// base provides the conservative defaults shared by immutable requirement
// kinds.
type base struct{}

func (base) CanBeMet() bool                            { return false }
func (base) StartArgs() cluster.Args                   { return nil }
func (base) ConnectArgs() cluster.Args                 { return nil }
func (base) Intersect(Requirement) (Requirement, bool) { return nil, false }

// limit is an exact-or-min numeric constraint; the zero value means unset.
// Exact and min are mutually exclusive, enforced at requirement
// construction.
type limit struct {
	exact int
	min   int
}

func (l limit) isSet() bool {
	return l.exact != 0 || l.min != 0
}

// value is the concrete number handed to the collaborator: the exact value
// when given, the floor otherwise.
func (l limit) value() int {
	if l.exact != 0 {
		return l.exact
	}
	return l.min
}

func (l limit) matches(n int) bool {
	if l.exact != 0 {
		return n == l.exact
	}
	if l.min != 0 {
		return n >= l.min
	}
	return true
}

func (l limit) equal(o limit) bool {
	return l.exact == o.exact && l.min == o.min
}

// intersectLimits merges two exact-or-min constraints. Two exact values
// intersect iff equal; an exact and a min intersect iff exact >= min, the
// exact winning; two mins always intersect as the larger floor. An unset
// side yields the other side unchanged.
func intersectLimits(a, b limit) (limit, bool) {
	if !a.isSet() {
		return b, true
	}
	if !b.isSet() {
		return a, true
	}
	if a.exact != 0 {
		if b.exact != 0 {
			if a.exact != b.exact {
				return limit{}, false
			}
			return limit{exact: a.exact}, true
		}
		if a.exact < b.min {
			return limit{}, false
		}
		return limit{exact: a.exact}, true
	}
	// a is a min
	if b.exact != 0 {
		if b.exact < a.min {
			return limit{}, false
		}
		return limit{exact: b.exact}, true
	}
	if b.min > a.min {
		return limit{min: b.min}, true
	}
	return limit{min: a.min}, true
}

type param struct {
	key   string
	value any
	set   bool
}

// renderParams produces the canonical key=value rendering: set parameters
// only, sorted by key, comma-joined.
func renderParams(params ...param) string {
	present := make([]param, 0, len(params))
	for _, p := range params {
		if p.set {
			present = append(present, p)
		}
	}
	sort.Slice(present, func(i, j int) bool { return present[i].key < present[j].key })
	parts := make([]string, 0, len(present))
	for _, p := range present {
		parts = append(parts, fmt.Sprintf("%s=%v", p.key, p.value))
	}
	return strings.Join(parts, ",")
}
