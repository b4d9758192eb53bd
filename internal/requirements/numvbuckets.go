// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"
	"strconv"

	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
)

const maxVbuckets = 1024

type numVbucketsRequirement struct {
	base
	numVbuckets int
}

// NewNumVbuckets constrains the default vbucket count new buckets are
// created with. Fixed at cluster start.
func NewNumVbuckets(numVbuckets int) (Requirement, error) {
	if numVbuckets <= 0 {
		return nil, errorx.IllegalArgument.New("num_vbuckets must be > 0, got %d", numVbuckets)
	}
	if numVbuckets > maxVbuckets {
		return nil, errorx.IllegalArgument.New("num_vbuckets must be <= %d, got %d", maxVbuckets, numVbuckets)
	}
	return &numVbucketsRequirement{numVbuckets: numVbuckets}, nil
}

func (r *numVbucketsRequirement) Kind() Kind { return KindNumVbuckets }

func (r *numVbucketsRequirement) String() string {
	return renderParams(param{"num_vbuckets", r.numVbuckets, true})
}

func (r *numVbucketsRequirement) Equal(other Requirement) bool {
	o, ok := other.(*numVbucketsRequirement)
	return ok && o.numVbuckets == r.numVbuckets
}

func (r *numVbucketsRequirement) IsMet(ctx context.Context, c *cluster.Cluster) (bool, error) {
	out, err := cluster.DiagEval(ctx, c, "ns_bucket:get_default_num_vbuckets().")
	if err != nil {
		return false, err
	}
	configured, err := strconv.Atoi(out)
	if err != nil {
		return false, errorx.IllegalFormat.Wrap(err, "unexpected default vbucket count %q", out)
	}
	return configured == r.numVbuckets, nil
}

func (r *numVbucketsRequirement) MakeMet(ctx context.Context, c *cluster.Cluster) error {
	return NewImmutableError(r)
}

func (r *numVbucketsRequirement) StartArgs() cluster.Args {
	return cluster.Args{"num_vbuckets": r.numVbuckets}
}
