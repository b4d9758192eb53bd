// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
)

type minVersionRequirement struct {
	base
	floor *semver.Version
}

// NewMinVersion requires every connected node to run at least the given
// server version. The running version obviously cannot be changed in place.
func NewMinVersion(version string) (Requirement, error) {
	floor, err := semver.NewVersion(version)
	if err != nil {
		return nil, errorx.IllegalArgument.Wrap(err, "min_version %q is not a valid version", version)
	}
	return &minVersionRequirement{floor: floor}, nil
}

func (r *minVersionRequirement) Kind() Kind { return KindMinVersion }

func (r *minVersionRequirement) String() string {
	return renderParams(param{"min_version", r.floor.String(), true})
}

func (r *minVersionRequirement) Equal(other Requirement) bool {
	o, ok := other.(*minVersionRequirement)
	return ok && o.floor.Equal(r.floor)
}

func (r *minVersionRequirement) IsMet(ctx context.Context, c *cluster.Cluster) (bool, error) {
	for _, node := range c.ConnectedNodes {
		res, err := cluster.GetSucc(ctx, node, "/pools")
		if err != nil {
			return false, err
		}
		var pools struct {
			ImplementationVersion string `json:"implementationVersion"`
		}
		if err := res.JSON(&pools); err != nil {
			return false, err
		}
		running, err := parseServerVersion(pools.ImplementationVersion)
		if err != nil {
			return false, err
		}
		if running.LessThan(r.floor) {
			return false, nil
		}
	}
	return true, nil
}

func (r *minVersionRequirement) MakeMet(ctx context.Context, c *cluster.Cluster) error {
	return NewImmutableError(r)
}

// Intersect of two version floors keeps the higher one.
func (r *minVersionRequirement) Intersect(other Requirement) (Requirement, bool) {
	o, ok := other.(*minVersionRequirement)
	if !ok {
		return nil, false
	}
	if o.floor.GreaterThan(r.floor) {
		return &minVersionRequirement{floor: o.floor}, true
	}
	return &minVersionRequirement{floor: r.floor}, true
}

// parseServerVersion extracts the numeric core from a reported version such
// as "7.6.2-3721-enterprise"; the build suffix would otherwise be treated as
// a pre-release and sort below the plain version.
func parseServerVersion(reported string) (*semver.Version, error) {
	core := reported
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	v, err := semver.NewVersion(core)
	if err != nil {
		return nil, errorx.IllegalFormat.Wrap(err, "cluster reported unparseable version %q", reported)
	}
	return v, nil
}
