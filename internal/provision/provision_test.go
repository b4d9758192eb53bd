// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"

	"clusterharness/internal/cluster"
	"clusterharness/internal/requirements"
)

// fakeProvisioner records the lifecycle calls made against it.
type fakeProvisioner struct {
	startArgs   cluster.Args
	startErr    error
	connectArgs cluster.Args
	connectErr  error
	killed      cluster.ProcessHandles
}

func (f *fakeProvisioner) Start(ctx context.Context, args cluster.Args) (cluster.ProcessHandles, error) {
	f.startArgs = args.Clone()
	if f.startErr != nil {
		return nil, f.startErr
	}
	n, _ := args.Int("num_nodes")
	start, _ := args.Int("start_index")
	handles := make(cluster.ProcessHandles, 0, n)
	for i := 0; i < n; i++ {
		handles = append(handles, cluster.ProcessHandle{PID: 1000 + i, NodeIndex: start + i})
	}
	return handles, nil
}

func (f *fakeProvisioner) Connect(ctx context.Context, args cluster.Args) error {
	f.connectArgs = args.Clone()
	return f.connectErr
}

func (f *fakeProvisioner) Kill(ctx context.Context, handles cluster.ProcessHandles, nodeURLs []string) error {
	f.killed = append(f.killed, handles...)
	return nil
}

func mustSet(t *testing.T, spec requirements.Spec) *requirements.Set {
	t.Helper()
	s, err := requirements.NewSet(spec)
	require.NoError(t, err)
	return s
}

func TestCreateClusterStartFailureIsFatal(t *testing.T) {
	prov := &fakeProvisioner{startErr: errorx.ExternalError.New("port in use")}
	set := mustSet(t, requirements.Spec{NumNodes: 1})

	_, err := CreateCluster(context.Background(), prov, set, Options{WorkDir: t.TempDir()})
	require.Error(t, err)
	require.True(t, errorx.IsOfType(err, ProvisionError))
	// start never produced processes, so nothing is pending teardown
	require.Equal(t, 0, cluster.PendingTeardowns())
}

func TestCreateClusterConnectFailureKeepsTeardown(t *testing.T) {
	prov := &fakeProvisioner{connectErr: errorx.ExternalError.New("join failed")}
	set := mustSet(t, requirements.Spec{NumNodes: 2})

	_, err := CreateCluster(context.Background(), prov, set, Options{WorkDir: t.TempDir()})
	require.Error(t, err)
	require.True(t, errorx.IsOfType(err, ProvisionError))

	// the started processes must still be killed on exit
	require.Equal(t, 1, cluster.PendingTeardowns())
	cluster.RunTeardowns(context.Background())
	require.Len(t, prov.killed, 2)
}

func TestCreateClusterDerivesArgs(t *testing.T) {
	prov := &fakeProvisioner{connectErr: errorx.ExternalError.New("stop here")}
	set := mustSet(t, requirements.Spec{
		Edition:  requirements.EditionEnterprise,
		NumNodes: 2,
		Memsize:  512,
	})

	_, err := CreateCluster(context.Background(), prov, set, Options{
		StartIndex: 4,
		WorkDir:    "/tmp/harness-test",
	})
	require.Error(t, err)
	cluster.RunTeardowns(context.Background())

	n, _ := prov.startArgs.Int("num_nodes")
	require.Equal(t, 2, n)
	start, _ := prov.startArgs.Int("start_index")
	require.Equal(t, 4, start)
	root, _ := prov.startArgs.String("root_dir")
	require.Equal(t, "/tmp/harness-test-4", root)
	require.False(t, prov.startArgs.Bool("force_community"))

	mem, _ := prov.connectArgs.Int("memsize")
	require.Equal(t, 512, mem)
	proto, _ := prov.connectArgs.String("protocol")
	require.Equal(t, "ipv4", proto)
}

func observedCluster(t *testing.T) (*cluster.Cluster, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pools/default":
			if r.Method == http.MethodPost {
				w.Write([]byte("{}"))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"memoryQuota": 512})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	node := cluster.NewNode(u.Hostname(), port, cluster.Auth{Username: "Administrator"})

	return &cluster.Cluster{
		Nodes:          []cluster.Node{node},
		ConnectedNodes: []cluster.Node{node},
		MemQuota:       512,
		IsEnterprise:   true,
		Version:        "7.6.0",
	}, srv
}

func TestGetAppropriateClusterReusesSatisfiedCluster(t *testing.T) {
	existing, _ := observedCluster(t)
	set := mustSet(t, requirements.Spec{Edition: requirements.EditionEnterprise, NumNodes: 1, Memsize: 512})

	got, err := GetAppropriateCluster(context.Background(), &fakeProvisioner{}, existing, set, Options{})
	require.NoError(t, err)
	require.Same(t, existing, got)
}

func TestGetAppropriateClusterRepairsInPlace(t *testing.T) {
	existing, _ := observedCluster(t)
	set := mustSet(t, requirements.Spec{Edition: requirements.EditionEnterprise, Memsize: 1024})

	got, err := GetAppropriateCluster(context.Background(), &fakeProvisioner{}, existing, set, Options{})
	require.NoError(t, err)
	require.Same(t, existing, got)
	require.Equal(t, 1024, got.MemQuota)
}

func TestGetAppropriateClusterRebuildsPastUsedIndices(t *testing.T) {
	existing, _ := observedCluster(t)
	existing.IsEnterprise = false // edition cannot be repaired
	existing.StartIndex = 2
	existing.Processes = cluster.ProcessHandles{{PID: 1, NodeIndex: 2}, {PID: 2, NodeIndex: 3}}
	existing.SetProvisioner(nil)

	prov := &fakeProvisioner{startErr: errorx.ExternalError.New("stop before network")}
	set := mustSet(t, requirements.Spec{Edition: requirements.EditionEnterprise, NumNodes: 1})

	_, err := GetAppropriateCluster(context.Background(), prov, existing, set, Options{WorkDir: t.TempDir()})
	require.Error(t, err)

	// the replacement cluster starts past the node indices the old one used
	start, _ := prov.startArgs.Int("start_index")
	require.Equal(t, 4, start)
}
