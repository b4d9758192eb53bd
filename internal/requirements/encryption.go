// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"

	"clusterharness/internal/cluster"
)

type n2nEncryptionRequirement struct {
	base
	encryption bool
}

// NewN2NEncryption requires node-to-node encryption to be uniformly on or
// off. Encryption can be toggled on a running cluster, so this requirement
// is repairable in place.
func NewN2NEncryption(encryption bool) (Requirement, error) {
	return &n2nEncryptionRequirement{encryption: encryption}, nil
}

func (r *n2nEncryptionRequirement) Kind() Kind { return KindEncryption }

func (r *n2nEncryptionRequirement) String() string {
	return renderParams(param{"encryption", r.encryption, true})
}

func (r *n2nEncryptionRequirement) Equal(other Requirement) bool {
	o, ok := other.(*n2nEncryptionRequirement)
	return ok && o.encryption == r.encryption
}

func (r *n2nEncryptionRequirement) IsMet(ctx context.Context, c *cluster.Cluster) (bool, error) {
	res, err := cluster.GetSucc(ctx, c, "/pools/nodes")
	if err != nil {
		return false, err
	}
	var pools struct {
		Nodes []struct {
			NodeEncryption bool `json:"nodeEncryption"`
		} `json:"nodes"`
	}
	if err := res.JSON(&pools); err != nil {
		return false, err
	}
	for _, node := range pools.Nodes {
		if node.NodeEncryption != r.encryption {
			return false, nil
		}
	}
	return true, nil
}

func (r *n2nEncryptionRequirement) CanBeMet() bool { return true }

func (r *n2nEncryptionRequirement) MakeMet(ctx context.Context, c *cluster.Cluster) error {
	return c.ToggleN2NEncryption(ctx, r.encryption)
}

func (r *n2nEncryptionRequirement) ConnectArgs() cluster.Args {
	return cluster.Args{"encryption": r.encryption}
}
