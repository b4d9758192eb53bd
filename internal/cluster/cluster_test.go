// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeNode serves just enough of the management API for Attach and the
// requirement checks: pool state, capability introspection and version.
type fakeNode struct {
	enterprise    bool
	serverless    bool
	provisioned   bool
	devPreview    bool
	version       string
	memoryQuota   int
	numNodes      int
	rebalancing   bool
	bucketDeletes []string
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/pools/default" && r.Method == http.MethodGet:
		nodes := make([]map[string]any, 0, f.numNodes)
		for i := 0; i < f.numNodes; i++ {
			nodes = append(nodes, map[string]any{
				"hostname": fmt.Sprintf("127.0.0.1:%d", BaseAPIPort+i),
				"status":   "healthy",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"memoryQuota": f.memoryQuota,
			"nodes":       nodes,
		})
	case r.URL.Path == "/pools/default" && r.Method == http.MethodPost:
		r.ParseForm()
		fmt.Sscanf(r.PostForm.Get("memoryQuota"), "%d", &f.memoryQuota)
		w.Write([]byte("{}"))
	case r.URL.Path == "/diag/eval":
		body, _ := io.ReadAll(r.Body)
		answer := "false"
		switch string(body) {
		case "cluster_compat_mode:is_enterprise().":
			answer = boolStr(f.enterprise)
		case "config_profile:is_serverless().":
			answer = boolStr(f.serverless)
		case "config_profile:is_provisioned().":
			answer = boolStr(f.provisioned)
		case "cluster_compat_mode:is_developer_preview().":
			answer = boolStr(f.devPreview)
		}
		w.Write([]byte(answer + "\n"))
	case r.URL.Path == "/pools":
		json.NewEncoder(w).Encode(map[string]any{"implementationVersion": f.version})
	case r.URL.Path == "/pools/default/rebalanceProgress":
		status := "none"
		if f.rebalancing {
			status = "running"
			f.rebalancing = false
		}
		json.NewEncoder(w).Encode(map[string]any{"status": status})
	case r.URL.Path == "/nodeStatuses":
		statuses := map[string]any{}
		for i := 0; i < f.numNodes; i++ {
			host := fmt.Sprintf("127.0.0.1:%d", BaseAPIPort+i)
			statuses[host] = map[string]any{"otpNode": "n_" + host}
		}
		json.NewEncoder(w).Encode(statuses)
	default:
		http.NotFound(w, r)
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func startFakeNode(t *testing.T, f *fakeNode) Node {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return testNode(t, srv, Auth{Username: "Administrator", Password: "asdasd"})
}

func TestAttachReadsObservedState(t *testing.T) {
	fake := &fakeNode{
		enterprise:  true,
		version:     "7.6.0-1234-enterprise",
		memoryQuota: 512,
		numNodes:    1,
	}
	node := startFakeNode(t, fake)

	c, err := Attach(context.Background(), []Node{node}, 1, 0, nil, node.Auth, nil)
	require.NoError(t, err)
	require.Len(t, c.ConnectedNodes, 1)
	require.Equal(t, 512, c.MemQuota)
	require.True(t, c.IsEnterprise)
	require.False(t, c.IsServerless)
	require.False(t, c.IsProvisioned)
	require.Equal(t, "7.6.0-1234-enterprise", c.Version)
}

func TestAttachFailsWhenNodeUnreachable(t *testing.T) {
	// nothing listens on this port
	node := NewNode("127.0.0.1", 1, Auth{})
	_, err := Attach(context.Background(), []Node{node}, 1, 0, nil, Auth{}, nil)
	require.Error(t, err)
}

func TestSetMemQuotaUpdatesCache(t *testing.T) {
	fake := &fakeNode{memoryQuota: 256, numNodes: 1, version: "7.6.0"}
	node := startFakeNode(t, fake)

	c, err := Attach(context.Background(), []Node{node}, 1, 0, nil, node.Auth, nil)
	require.NoError(t, err)
	require.Equal(t, 256, c.MemQuota)

	require.NoError(t, c.SetMemQuota(context.Background(), 1024))
	require.Equal(t, 1024, c.MemQuota)
	require.Equal(t, 1024, fake.memoryQuota)
}

func TestWaitForRebalanceRetriesUntilDone(t *testing.T) {
	fake := &fakeNode{numNodes: 1, version: "7.6.0", rebalancing: true}
	node := startFakeNode(t, fake)

	c, err := Attach(context.Background(), []Node{node}, 1, 0, nil, node.Auth, nil)
	require.NoError(t, err)
	require.NoError(t, c.WaitForRebalance(context.Background(), 0))
}

func TestConnectExistingDiscoversNodeCount(t *testing.T) {
	fake := &fakeNode{enterprise: true, memoryQuota: 512, numNodes: 1, version: "7.6.0"}
	node := startFakeNode(t, fake)

	c, err := ConnectExisting(context.Background(), node.Host, node.Port, 0, node.Auth)
	require.NoError(t, err)
	require.Len(t, c.Nodes, 1)
	require.Len(t, c.ConnectedNodes, 1)
	require.Equal(t, node.Port-BaseAPIPort, c.StartIndex)
	// externally supplied clusters are never torn down
	require.NoError(t, c.Teardown(context.Background()))
}
