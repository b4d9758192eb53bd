// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"

	"github.com/automa-saga/logx"
)

// ConnectExisting attaches to a pre-started cluster at address:startPort.
// numNodes is the number of nodes available to the harness; zero means
// "assume every node is already connected". Externally supplied clusters are
// never provisioned or torn down by the harness.
func ConnectExisting(ctx context.Context, address string, startPort, numNodes int, auth Auth) (*Cluster, error) {
	probe := NewNode(address, startPort, auth)
	res, err := GetSucc(ctx, probe, "/pools/default")
	if err != nil {
		return nil, NewConnectError(err, probe.URL()+"/pools/default")
	}

	var poolsDefault struct {
		Nodes []struct {
			Hostname string `json:"hostname"`
		} `json:"nodes"`
	}
	if err := res.JSON(&poolsDefault); err != nil {
		return nil, err
	}
	nodesFound := len(poolsDefault.Nodes)
	if nodesFound == 0 {
		return nil, ConnectError.New("no nodes reported by %s/pools/default", probe.URL())
	}

	if numNodes == 0 {
		numNodes = nodesFound
	}
	nodes := make([]Node, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		nodes = append(nodes, NewNode(address, startPort+i, auth))
	}

	c, err := Attach(ctx, nodes, nodesFound, startPort-BaseAPIPort, nil, auth, nil)
	if err != nil {
		return nil, err
	}
	logx.As().Info().Str("cluster", c.String()).Msg("Discovered existing cluster")
	return c, nil
}
