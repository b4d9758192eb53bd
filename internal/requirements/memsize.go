// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"

	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
)

// minMemQuotaMB is the smallest memory quota the cluster accepts.
const minMemQuotaMB = 256

type memSizeRequirement struct {
	base
	quota limit
}

// NewMemSize constrains the cluster memory quota in MB, exact or minimum;
// zero means unspecified. The quota can be changed on a running cluster, so
// this requirement is repairable in place.
func NewMemSize(memsize, minMemsize int) (Requirement, error) {
	if memsize == 0 && minMemsize == 0 {
		return nil, errorx.IllegalArgument.New("one of memsize and min_memsize must be given")
	}
	if memsize != 0 && minMemsize != 0 {
		return nil, errorx.IllegalArgument.New("memsize and min_memsize are mutually exclusive")
	}
	if memsize != 0 && memsize < minMemQuotaMB {
		return nil, errorx.IllegalArgument.New("memsize must be >= %d, got %d", minMemQuotaMB, memsize)
	}
	if minMemsize != 0 && minMemsize < minMemQuotaMB {
		return nil, errorx.IllegalArgument.New("min_memsize must be >= %d, got %d", minMemQuotaMB, minMemsize)
	}
	return &memSizeRequirement{quota: limit{exact: memsize, min: minMemsize}}, nil
}

func (r *memSizeRequirement) Kind() Kind { return KindMemSize }

func (r *memSizeRequirement) String() string {
	return renderParams(
		param{"memsize", r.quota.exact, r.quota.exact != 0},
		param{"min_memsize", r.quota.min, r.quota.min != 0},
	)
}

func (r *memSizeRequirement) Equal(other Requirement) bool {
	o, ok := other.(*memSizeRequirement)
	return ok && o.quota.equal(r.quota)
}

func (r *memSizeRequirement) IsMet(ctx context.Context, c *cluster.Cluster) (bool, error) {
	return r.quota.matches(c.MemQuota), nil
}

func (r *memSizeRequirement) CanBeMet() bool { return true }

func (r *memSizeRequirement) MakeMet(ctx context.Context, c *cluster.Cluster) error {
	return c.SetMemQuota(ctx, r.quota.value())
}

func (r *memSizeRequirement) Intersect(other Requirement) (Requirement, bool) {
	o, ok := other.(*memSizeRequirement)
	if !ok {
		return nil, false
	}
	quota, ok := intersectLimits(r.quota, o.quota)
	if !ok {
		return nil, false
	}
	merged, err := NewMemSize(quota.exact, quota.min)
	if err != nil {
		return nil, false
	}
	return merged, true
}

func (r *memSizeRequirement) ConnectArgs() cluster.Args {
	return cluster.Args{"memsize": r.quota.value()}
}
