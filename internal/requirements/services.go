// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"
	"fmt"
	"sort"

	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
)

// Service is a deployable cluster service.
type Service string

const (
	ServiceKV        Service = "kv"
	ServiceIndex     Service = "index"
	ServiceQuery     Service = "n1ql"
	ServiceFTS       Service = "fts"
	ServiceBackup    Service = "backup"
	ServiceEventing  Service = "eventing"
	ServiceAnalytics Service = "cbas"
)

var knownServices = map[Service]bool{
	ServiceKV:        true,
	ServiceIndex:     true,
	ServiceQuery:     true,
	ServiceFTS:       true,
	ServiceBackup:    true,
	ServiceEventing:  true,
	ServiceAnalytics: true,
}

type servicesRequirement struct {
	base
	// all applies the same service list to every node; byNode assigns
	// per-node lists keyed by node index. Exactly one of the two is set.
	all    []Service
	byNode map[int][]Service
}

// NewServices constrains the services deployed on every node to at least the
// given list.
func NewServices(services []Service) (Requirement, error) {
	if len(services) == 0 {
		return nil, errorx.IllegalArgument.New("services list must not be empty")
	}
	if err := validateServices(services); err != nil {
		return nil, err
	}
	return &servicesRequirement{all: services}, nil
}

// NewServicesByNode constrains the services deployed per node, keyed by node
// index. Nodes without an entry are unconstrained.
func NewServicesByNode(byNode map[int][]Service) (Requirement, error) {
	if len(byNode) == 0 {
		return nil, errorx.IllegalArgument.New("per-node services map must not be empty")
	}
	for idx, services := range byNode {
		if idx < 0 {
			return nil, errorx.IllegalArgument.New("node index must not be negative, got %d", idx)
		}
		if err := validateServices(services); err != nil {
			return nil, err
		}
	}
	return &servicesRequirement{byNode: byNode}, nil
}

func validateServices(services []Service) error {
	for _, s := range services {
		if !knownServices[s] {
			return errorx.IllegalArgument.New("unknown service %q", s)
		}
	}
	return nil
}

func (r *servicesRequirement) Kind() Kind { return KindServices }

func (r *servicesRequirement) String() string {
	return renderParams(param{"deploy", r.deploySpec(), true})
}

func (r *servicesRequirement) deploySpec() string {
	if r.all != nil {
		return fmt.Sprintf("%v", r.all)
	}
	indices := make([]int, 0, len(r.byNode))
	for idx := range r.byNode {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	out := ""
	for i, idx := range indices {
		if i > 0 {
			out += ";"
		}
		out += fmt.Sprintf("n%d:%v", idx, r.byNode[idx])
	}
	return out
}

func (r *servicesRequirement) Equal(other Requirement) bool {
	o, ok := other.(*servicesRequirement)
	if !ok {
		return false
	}
	if (r.all == nil) != (o.all == nil) {
		return false
	}
	if r.all != nil {
		if len(r.all) != len(o.all) {
			return false
		}
		for i := range r.all {
			if r.all[i] != o.all[i] {
				return false
			}
		}
		return true
	}
	if len(r.byNode) != len(o.byNode) {
		return false
	}
	for idx, services := range r.byNode {
		otherServices, ok := o.byNode[idx]
		if !ok || len(services) != len(otherServices) {
			return false
		}
		for i := range services {
			if services[i] != otherServices[i] {
				return false
			}
		}
	}
	return true
}

// IsMet queries each connected node individually: the summary endpoint does
// not say which response entry is which node, so only the thisNode entry of
// a direct query is trustworthy.
func (r *servicesRequirement) IsMet(ctx context.Context, c *cluster.Cluster) (bool, error) {
	for i, node := range c.ConnectedNodes {
		res, err := cluster.GetSucc(ctx, node, "/pools/nodes")
		if err != nil {
			return false, err
		}
		var pools struct {
			Nodes []struct {
				ThisNode bool     `json:"thisNode"`
				Services []string `json:"services"`
			} `json:"nodes"`
		}
		if err := res.JSON(&pools); err != nil {
			return false, err
		}

		var nodeServices []string
		for _, info := range pools.Nodes {
			if info.ThisNode {
				nodeServices = info.Services
			}
		}

		for _, want := range r.servicesForNode(i) {
			found := false
			for _, have := range nodeServices {
				if have == string(want) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		}
	}
	return true, nil
}

func (r *servicesRequirement) servicesForNode(index int) []Service {
	if r.all != nil {
		return r.all
	}
	return r.byNode[index]
}

func (r *servicesRequirement) MakeMet(ctx context.Context, c *cluster.Cluster) error {
	return NewImmutableError(r)
}

func (r *servicesRequirement) ConnectArgs() cluster.Args {
	if r.all != nil {
		deploy := make([]string, 0, len(r.all))
		for _, s := range r.all {
			deploy = append(deploy, string(s))
		}
		return cluster.Args{"deploy": deploy}
	}
	deploy := make(map[string][]string, len(r.byNode))
	for idx, services := range r.byNode {
		names := make([]string, 0, len(services))
		for _, s := range services {
			names = append(names, string(s))
		}
		deploy[fmt.Sprintf("n%d", idx)] = names
	}
	return cluster.Args{"deploy": deploy}
}
