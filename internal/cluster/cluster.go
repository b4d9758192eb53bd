// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/automa-saga/logx"
)

// Cluster is a handle to a running cluster plus the state the requirement
// engine reads. The observed fields are populated once at attach time; only
// MemQuota is updated afterwards, by the memory-size requirement's repair
// path.
type Cluster struct {
	Nodes          []Node
	ConnectedNodes []Node
	StartIndex     int
	Processes      ProcessHandles
	Auth           Auth

	// Memory quota in MB, cached from /pools/default at attach time.
	MemQuota int

	// Edition and capability flags, fetched once at attach time.
	IsEnterprise  bool
	IsServerless  bool
	IsProvisioned bool
	IsDevPreview  bool
	Version       string

	provisioner    Provisioner
	teardownHandle *TeardownHandle
}

// EndpointNode implements Endpoint: cluster-level requests go to the first
// connected node.
func (c *Cluster) EndpointNode() Node {
	return c.ConnectedNodes[0]
}

// Credentials implements Endpoint.
func (c *Cluster) Credentials() Auth {
	return c.Auth
}

func (c *Cluster) String() string {
	hosts := make([]string, 0, len(c.ConnectedNodes))
	for _, n := range c.ConnectedNodes {
		hosts = append(hosts, n.Hostname())
	}
	return strings.Join(hosts, ",") + " (" + strconv.Itoa(len(c.Nodes)) + " nodes)"
}

// Attach probes the given nodes, records which of them are connected to the
// cluster and reads the observed state the requirement checks depend on. The
// first numConnected nodes are expected to answer /pools/default.
func Attach(ctx context.Context, nodes []Node, numConnected, startIndex int,
	processes ProcessHandles, auth Auth, p Provisioner) (*Cluster, error) {

	c := &Cluster{
		Nodes:       nodes,
		StartIndex:  startIndex,
		Processes:   processes,
		Auth:        auth,
		provisioner: p,
	}

	var poolsDefault struct {
		MemoryQuota int `json:"memoryQuota"`
	}
	for i, node := range nodes {
		if i >= numConnected {
			break
		}
		res, err := GetSucc(ctx, node, "/pools/default")
		if err != nil {
			return nil, NewConnectError(err, node.URL()+"/pools/default")
		}
		if err := res.JSON(&poolsDefault); err != nil {
			return nil, err
		}
		c.ConnectedNodes = append(c.ConnectedNodes, node)
	}
	if len(c.ConnectedNodes) == 0 {
		return nil, ConnectError.New("no connected nodes found among %d node(s)", len(nodes))
	}
	c.MemQuota = poolsDefault.MemoryQuota

	if err := c.fetchCapabilities(ctx); err != nil {
		return nil, err
	}

	logx.As().Info().
		Str("cluster", c.String()).
		Int("memsize", c.MemQuota).
		Bool("enterprise", c.IsEnterprise).
		Msg("Attached to cluster")
	return c, nil
}

func (c *Cluster) fetchCapabilities(ctx context.Context) error {
	evalBool := func(code string) (bool, error) {
		out, err := DiagEval(ctx, c, code)
		if err != nil {
			return false, err
		}
		return out == "true", nil
	}

	var err error
	if c.IsEnterprise, err = evalBool("cluster_compat_mode:is_enterprise()."); err != nil {
		return err
	}
	if c.IsServerless, err = evalBool("config_profile:is_serverless()."); err != nil {
		return err
	}
	if c.IsProvisioned, err = evalBool("config_profile:is_provisioned()."); err != nil {
		return err
	}
	if c.IsDevPreview, err = evalBool("cluster_compat_mode:is_developer_preview()."); err != nil {
		return err
	}

	var pools struct {
		ImplementationVersion string `json:"implementationVersion"`
	}
	res, err := GetSucc(ctx, c, "/pools")
	if err != nil {
		return err
	}
	if err := res.JSON(&pools); err != nil {
		return err
	}
	c.Version = pools.ImplementationVersion
	return nil
}

// SetMemQuota issues a quota update and refreshes the cached value.
func (c *Cluster) SetMemQuota(ctx context.Context, quotaMB int) error {
	form := url.Values{}
	form.Set("memoryQuota", strconv.Itoa(quotaMB))
	if _, err := PostSucc(ctx, c, "/pools/default", WithForm(form)); err != nil {
		return err
	}
	c.MemQuota = quotaMB
	return nil
}

// ToggleN2NEncryption flips node-to-node encryption on every connected node.
func (c *Cluster) ToggleN2NEncryption(ctx context.Context, enable bool) error {
	mode := "off"
	if enable {
		mode = "on"
	}
	for _, node := range c.ConnectedNodes {
		if _, err := PostSucc(ctx, node, "/node/controller/enableExternalListener",
			WithForm(url.Values{"nodeEncryption": {mode}})); err != nil {
			return err
		}
		if _, err := PostSucc(ctx, node, "/node/controller/setupNetConfig",
			WithForm(url.Values{"nodeEncryption": {mode}})); err != nil {
			return err
		}
	}
	for _, node := range c.ConnectedNodes {
		if _, err := PostSucc(ctx, node, "/node/controller/disableUnusedExternalListeners"); err != nil {
			return err
		}
	}
	logx.As().Info().Bool("enabled", enable).Msg("Toggled node-to-node encryption")
	return nil
}

// OTPNodes maps each node hostname to its internal (otp) node name.
func (c *Cluster) OTPNodes(ctx context.Context) (map[string]string, error) {
	res, err := GetSucc(ctx, c, "/nodeStatuses")
	if err != nil {
		return nil, err
	}
	var statuses map[string]struct {
		OTPNode string `json:"otpNode"`
	}
	if err := res.JSON(&statuses); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(statuses))
	for hostname, s := range statuses {
		out[hostname] = s.OTPNode
	}
	return out, nil
}

// SetProvisioner records the collaborator used for teardown. Clusters
// attached to externally supplied nodes have none and cannot be torn down.
func (c *Cluster) SetProvisioner(p Provisioner) {
	c.provisioner = p
}

// SetTeardownHandle records the registered abnormal-exit callback so Teardown
// can unregister it once the nodes are killed cleanly.
func (c *Cluster) SetTeardownHandle(h *TeardownHandle) {
	c.teardownHandle = h
}

// Teardown kills every node process associated with this cluster and drops
// the abnormal-exit callback.
func (c *Cluster) Teardown(ctx context.Context) error {
	if c.provisioner == nil || len(c.Processes) == 0 {
		return nil
	}
	if err := c.provisioner.Kill(ctx, c.Processes, NodeURLs(c.Nodes)); err != nil {
		return TeardownError.Wrap(err, "failed to kill cluster nodes")
	}
	if c.teardownHandle != nil {
		Unregister(c.teardownHandle)
		c.teardownHandle = nil
	}
	logx.As().Info().Str("cluster", c.String()).Msg("Cluster torn down")
	return nil
}
