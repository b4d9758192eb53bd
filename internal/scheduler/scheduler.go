// SPDX-License-Identifier: Apache-2.0

// Package scheduler partitions test work by cluster requirements so that
// suites with compatible requirement sets share one provisioned cluster.
package scheduler

import (
	"sort"

	"clusterharness/internal/requirements"
)

// Entry is one unit of schedulable work: a payload bound to the requirement
// set it needs a cluster for.
type Entry[T any] struct {
	Reqs *requirements.Set
	Item T
}

// Group is a set of work items served by one cluster, provisioned to the
// representative requirement set.
type Group[T any] struct {
	Reqs  *requirements.Set
	Items []T
}

// Schedule folds entries into groups greedily: an entry joins every existing
// group whose representative set would satisfy it (a cluster built for the
// representative also serves the entry); an entry no group serves starts a
// new group with itself as representative. The first-seen set of a
// compatible family stays the representative for the whole run, even when a
// later, more specific set would have collected a larger group.
//
// Groups are returned sorted by the representative's canonical string.
// Since that string lists non-reconfigurable requirements first, groups
// needing only in-place reconfiguration relative to each other end up
// adjacent, which keeps cluster reuse cheap when iterating in order.
func Schedule[T any](entries []Entry[T]) []Group[T] {
	var groups []*Group[T]
	for _, e := range entries {
		matched := false
		for _, g := range groups {
			if e.Reqs.SatisfiedBy(g.Reqs) {
				g.Items = append(g.Items, e.Item)
				matched = true
			}
		}
		if !matched {
			groups = append(groups, &Group[T]{Reqs: e.Reqs, Items: []T{e.Item}})
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Reqs.String() < groups[j].Reqs.String()
	})

	out := make([]Group[T], 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	return out
}
