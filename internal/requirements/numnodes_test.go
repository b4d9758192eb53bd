// SPDX-License-Identifier: Apache-2.0

package requirements

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"clusterharness/internal/cluster"
)

func nodesCluster(total, connected int) *cluster.Cluster {
	c := &cluster.Cluster{}
	for i := 0; i < total; i++ {
		n := cluster.NewNode("127.0.0.1", cluster.BaseAPIPort+i, cluster.Auth{})
		c.Nodes = append(c.Nodes, n)
		if i < connected {
			c.ConnectedNodes = append(c.ConnectedNodes, n)
		}
	}
	return c
}

func TestNewNumNodesValidation(t *testing.T) {
	tests := []struct {
		name                           string
		total, minTotal, conn, minConn int
		wantErr                        bool
	}{
		{name: "exact total", total: 3, wantErr: false},
		{name: "min total", minTotal: 2, wantErr: false},
		{name: "neither given", wantErr: true},
		{name: "both totals", total: 3, minTotal: 2, wantErr: true},
		{name: "both connected", total: 3, conn: 2, minConn: 1, wantErr: true},
		{name: "connected exceeds total", total: 2, conn: 3, wantErr: true},
		{name: "min connected exceeds total", total: 2, minConn: 3, wantErr: true},
		{name: "negative", total: -1, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewNumNodes(tc.total, tc.minTotal, tc.conn, tc.minConn)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNumNodesConnectedMirrorsTotal(t *testing.T) {
	r, err := NewNumNodes(3, 0, 0, 0)
	require.NoError(t, err)

	met, err := r.IsMet(context.Background(), nodesCluster(3, 3))
	require.NoError(t, err)
	require.True(t, met)

	// all three nodes must be connected, not just started
	met, err = r.IsMet(context.Background(), nodesCluster(3, 2))
	require.NoError(t, err)
	require.False(t, met)
}

func TestNumNodesPartialConnect(t *testing.T) {
	r, err := NewNumNodes(3, 0, 2, 0)
	require.NoError(t, err)

	met, err := r.IsMet(context.Background(), nodesCluster(3, 2))
	require.NoError(t, err)
	require.True(t, met)

	met, err = r.IsMet(context.Background(), nodesCluster(3, 3))
	require.NoError(t, err)
	require.False(t, met)
}

func TestNumNodesMirroringInvisibleToEquality(t *testing.T) {
	// "3 nodes" and "3 nodes, 3 connected" check the same thing, but they
	// declare different constraints and must not compare equal.
	implicit, err := NewNumNodes(3, 0, 0, 0)
	require.NoError(t, err)
	explicit, err := NewNumNodes(3, 0, 3, 0)
	require.NoError(t, err)

	require.False(t, implicit.Equal(explicit))
	require.Equal(t, "num_nodes=3", implicit.String())
	require.Equal(t, "num_connected=3,num_nodes=3", explicit.String())
}

func TestNumNodesConnectArgs(t *testing.T) {
	single, err := NewNumNodes(1, 0, 0, 0)
	require.NoError(t, err)
	args := single.ConnectArgs()
	n, _ := args.Int("num_nodes")
	require.Equal(t, 1, n)
	require.False(t, args.Bool("do_rebalance"))

	multi, err := NewNumNodes(3, 0, 0, 0)
	require.NoError(t, err)
	args = multi.ConnectArgs()
	n, _ = args.Int("num_nodes")
	require.Equal(t, 3, n)
	require.True(t, args.Bool("do_rebalance"))
	require.True(t, args.Bool("do_wait_for_rebalance"))
}

func TestNumNodesIntersect(t *testing.T) {
	exact, err := NewNumNodes(3, 0, 0, 0)
	require.NoError(t, err)
	atLeast, err := NewNumNodes(0, 2, 0, 0)
	require.NoError(t, err)

	merged, ok := exact.Intersect(atLeast)
	require.True(t, ok)
	require.Equal(t, "num_nodes=3", merged.String())

	conflicting, err := NewNumNodes(0, 4, 0, 0)
	require.NoError(t, err)
	_, ok = exact.Intersect(conflicting)
	require.False(t, ok)
}

func TestNumNodesImmutable(t *testing.T) {
	r, err := NewNumNodes(3, 0, 0, 0)
	require.NoError(t, err)
	require.False(t, r.CanBeMet())
	require.Error(t, r.MakeMet(context.Background(), nodesCluster(1, 1)))
}
