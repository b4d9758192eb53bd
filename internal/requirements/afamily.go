// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"

	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
)

// AFamily is the address family the cluster nodes listen on.
type AFamily string

const (
	AFamilyIPv4 AFamily = "ipv4"
	AFamilyIPv6 AFamily = "ipv6"
)

// The management API labels address families with the inet names.
var afamilyLabels = map[AFamily]string{
	AFamilyIPv4: "inet",
	AFamilyIPv6: "inet6",
}

type afamilyRequirement struct {
	base
	afamily AFamily
}

// NewAFamily constrains every node to the given address family.
func NewAFamily(afamily AFamily) (Requirement, error) {
	if _, ok := afamilyLabels[afamily]; !ok {
		return nil, errorx.IllegalArgument.New("afamily must be ipv4 or ipv6, got %q", afamily)
	}
	return &afamilyRequirement{afamily: afamily}, nil
}

func (r *afamilyRequirement) Kind() Kind { return KindAFamily }

func (r *afamilyRequirement) String() string {
	return renderParams(param{"afamily", r.afamily, true})
}

func (r *afamilyRequirement) Equal(other Requirement) bool {
	o, ok := other.(*afamilyRequirement)
	return ok && o.afamily == r.afamily
}

func (r *afamilyRequirement) IsMet(ctx context.Context, c *cluster.Cluster) (bool, error) {
	res, err := cluster.GetSucc(ctx, c, "/pools/nodes")
	if err != nil {
		return false, err
	}
	var pools struct {
		Nodes []struct {
			AddressFamily string `json:"addressFamily"`
		} `json:"nodes"`
	}
	if err := res.JSON(&pools); err != nil {
		return false, err
	}
	for _, node := range pools.Nodes {
		if node.AddressFamily != afamilyLabels[r.afamily] {
			return false, nil
		}
	}
	return true, nil
}

func (r *afamilyRequirement) MakeMet(ctx context.Context, c *cluster.Cluster) error {
	return NewImmutableError(r)
}

func (r *afamilyRequirement) ConnectArgs() cluster.Args {
	return cluster.Args{"protocol": string(r.afamily)}
}
