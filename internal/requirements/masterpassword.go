// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"

	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
)

type masterPasswordStateRequirement struct {
	base
	state string
}

// NewMasterPasswordState requires every connected node's secrets-management
// password state to match. Not enforced at creation (the default state is
// what suites check for) and deliberately not repairable: repairing it would
// exercise the very API under test.
func NewMasterPasswordState(state string) (Requirement, error) {
	if state == "" {
		return nil, errorx.IllegalArgument.New("master password state must not be empty")
	}
	return &masterPasswordStateRequirement{state: state}, nil
}

func (r *masterPasswordStateRequirement) Kind() Kind { return KindMasterPasswordState }

func (r *masterPasswordStateRequirement) String() string {
	return renderParams(param{"master_password_state", r.state, true})
}

func (r *masterPasswordStateRequirement) Equal(other Requirement) bool {
	o, ok := other.(*masterPasswordStateRequirement)
	return ok && o.state == r.state
}

func (r *masterPasswordStateRequirement) IsMet(ctx context.Context, c *cluster.Cluster) (bool, error) {
	for _, node := range c.ConnectedNodes {
		res, err := cluster.GetSucc(ctx, node, "/nodes/self/secretsManagement")
		if err != nil {
			return false, err
		}
		var secrets struct {
			EncryptionService struct {
				PasswordState string `json:"passwordState"`
			} `json:"encryptionService"`
		}
		if err := res.JSON(&secrets); err != nil {
			return false, err
		}
		if secrets.EncryptionService.PasswordState != r.state {
			return false, nil
		}
	}
	return true, nil
}

func (r *masterPasswordStateRequirement) MakeMet(ctx context.Context, c *cluster.Cluster) error {
	return NewImmutableError(r)
}
