// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"

	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
)

// Edition names a cluster product edition.
type Edition string

const (
	EditionCommunity   Edition = "Community"
	EditionEnterprise  Edition = "Enterprise"
	EditionServerless  Edition = "Serverless"
	EditionProvisioned Edition = "Provisioned"
)

var editions = []Edition{EditionCommunity, EditionEnterprise, EditionServerless, EditionProvisioned}

type editionRequirement struct {
	base
	edition Edition
}

// NewEdition constrains the cluster to a product edition. Editions cannot be
// changed once a cluster is running.
func NewEdition(edition Edition) (Requirement, error) {
	valid := false
	for _, e := range editions {
		if edition == e {
			valid = true
			break
		}
	}
	if !valid {
		return nil, errorx.IllegalArgument.New("edition must be one of %v, got %q", editions, edition)
	}
	return &editionRequirement{edition: edition}, nil
}

func (r *editionRequirement) Kind() Kind { return KindEdition }

func (r *editionRequirement) String() string {
	return renderParams(param{"edition", r.edition, true})
}

func (r *editionRequirement) Equal(other Requirement) bool {
	o, ok := other.(*editionRequirement)
	return ok && o.edition == r.edition
}

func (r *editionRequirement) IsMet(ctx context.Context, c *cluster.Cluster) (bool, error) {
	switch r.edition {
	case EditionCommunity:
		return !c.IsEnterprise && !c.IsServerless, nil
	case EditionEnterprise:
		return c.IsEnterprise && !c.IsServerless, nil
	case EditionServerless:
		return c.IsEnterprise && c.IsServerless, nil
	case EditionProvisioned:
		return c.IsEnterprise && c.IsProvisioned, nil
	}
	return false, nil
}

func (r *editionRequirement) MakeMet(ctx context.Context, c *cluster.Cluster) error {
	return NewImmutableError(r)
}

func (r *editionRequirement) StartArgs() cluster.Args {
	switch r.edition {
	case EditionCommunity:
		return cluster.Args{"force_community": true, "run_serverless": false}
	case EditionEnterprise:
		return cluster.Args{"force_community": false, "run_serverless": false}
	case EditionServerless:
		return cluster.Args{"force_community": false, "run_serverless": true}
	case EditionProvisioned:
		return cluster.Args{"force_community": false, "run_provisioned": true}
	}
	return nil
}
