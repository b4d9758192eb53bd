// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"

	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
)

type numNodesRequirement struct {
	base
	// Declared constraints, as given by the suite. Used for equality and
	// rendering.
	total             limit
	declaredConnected limit
	// Effective connected constraint: mirrors total when the suite left
	// the connected count unspecified. Used for checking and args.
	connected limit
}

// NewNumNodes constrains the total and connected node counts. Each count is
// either exact or a minimum; zero means unspecified. When neither connected
// form is given, the connected count mirrors the total-node constraint.
func NewNumNodes(numNodes, minNumNodes, numConnected, minNumConnected int) (Requirement, error) {
	if numNodes == 0 && minNumNodes == 0 {
		return nil, errorx.IllegalArgument.New("one of num_nodes and min_num_nodes must be given")
	}
	if numNodes != 0 && minNumNodes != 0 {
		return nil, errorx.IllegalArgument.New("num_nodes and min_num_nodes are mutually exclusive")
	}
	if numConnected != 0 && minNumConnected != 0 {
		return nil, errorx.IllegalArgument.New("num_connected and min_num_connected are mutually exclusive")
	}
	for name, v := range map[string]int{
		"num_nodes":         numNodes,
		"min_num_nodes":     minNumNodes,
		"num_connected":     numConnected,
		"min_num_connected": minNumConnected,
	} {
		if v < 0 {
			return nil, errorx.IllegalArgument.New("%s must be a positive integer, got %d", name, v)
		}
	}
	totalCap := numNodes
	if totalCap == 0 {
		totalCap = minNumNodes
	}
	if numConnected != 0 && numConnected > totalCap {
		return nil, errorx.IllegalArgument.New(
			"node count (%d) cannot be less than num_connected (%d)", totalCap, numConnected)
	}
	if minNumConnected != 0 && minNumConnected > totalCap {
		return nil, errorx.IllegalArgument.New(
			"node count (%d) cannot be less than min_num_connected (%d)", totalCap, minNumConnected)
	}

	r := &numNodesRequirement{
		total:             limit{exact: numNodes, min: minNumNodes},
		declaredConnected: limit{exact: numConnected, min: minNumConnected},
	}
	r.connected = r.declaredConnected
	if !r.connected.isSet() {
		// All nodes connected unless the suite says otherwise.
		r.connected = r.total
	}
	return r, nil
}

func (r *numNodesRequirement) Kind() Kind { return KindNumNodes }

func (r *numNodesRequirement) String() string {
	return renderParams(
		param{"num_nodes", r.total.exact, r.total.exact != 0},
		param{"min_num_nodes", r.total.min, r.total.min != 0},
		param{"num_connected", r.declaredConnected.exact, r.declaredConnected.exact != 0},
		param{"min_num_connected", r.declaredConnected.min, r.declaredConnected.min != 0},
	)
}

func (r *numNodesRequirement) Equal(other Requirement) bool {
	o, ok := other.(*numNodesRequirement)
	return ok && o.total.equal(r.total) && o.declaredConnected.equal(r.declaredConnected)
}

func (r *numNodesRequirement) IsMet(ctx context.Context, c *cluster.Cluster) (bool, error) {
	if !r.total.matches(len(c.Nodes)) {
		return false, nil
	}
	if !r.connected.matches(len(c.ConnectedNodes)) {
		return false, nil
	}
	return true, nil
}

func (r *numNodesRequirement) MakeMet(ctx context.Context, c *cluster.Cluster) error {
	return NewImmutableError(r)
}

func (r *numNodesRequirement) Intersect(other Requirement) (Requirement, bool) {
	o, ok := other.(*numNodesRequirement)
	if !ok {
		return nil, false
	}
	total, ok := intersectLimits(r.total, o.total)
	if !ok {
		return nil, false
	}
	connected, ok := intersectLimits(r.connected, o.connected)
	if !ok {
		return nil, false
	}
	merged, err := NewNumNodes(total.exact, total.min, connected.exact, connected.min)
	if err != nil {
		return nil, false
	}
	return merged, true
}

func (r *numNodesRequirement) StartArgs() cluster.Args {
	return cluster.Args{"num_nodes": r.total.value()}
}

func (r *numNodesRequirement) ConnectArgs() cluster.Args {
	args := cluster.Args{"num_nodes": r.connected.value()}
	if r.connected.value() > 1 {
		args["do_rebalance"] = true
		args["do_wait_for_rebalance"] = true
	} else {
		args["do_rebalance"] = false
	}
	return args
}
