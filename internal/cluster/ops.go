// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/automa-saga/logx"
	"github.com/cenkalti/backoff/v4"
)

// RebalanceOptions controls a rebalance request. Zero value means rebalance
// everything in and wait for completion.
type RebalanceOptions struct {
	EjectedNodes []Node
	NoWait       bool
	Timeout      time.Duration
}

// Rebalance starts a rebalance, optionally ejecting nodes, and by default
// waits for it to finish. Ejected nodes are removed from ConnectedNodes
// before waiting so progress polling never hits a node on its way out.
func (c *Cluster) Rebalance(ctx context.Context, opts RebalanceOptions) error {
	otpNodes, err := c.OTPNodes(ctx)
	if err != nil {
		return err
	}

	known := make([]string, 0, len(otpNodes))
	for _, otp := range otpNodes {
		known = append(known, otp)
	}

	ejected := make([]string, 0, len(opts.EjectedNodes))
	remaining := make([]Node, 0, len(opts.EjectedNodes))
	for _, node := range opts.EjectedNodes {
		// Nodes without an otp name are not part of the cluster; skip them.
		if otp, ok := otpNodes[node.Hostname()]; ok {
			ejected = append(ejected, otp)
			remaining = append(remaining, node)
		}
	}

	form := url.Values{}
	form.Set("knownNodes", strings.Join(known, ","))
	form.Set("ejectedNodes", strings.Join(ejected, ","))

	logx.As().Debug().
		Str("knownNodes", form.Get("knownNodes")).
		Str("ejectedNodes", form.Get("ejectedNodes")).
		Msg("Starting rebalance")
	if _, err := PostSucc(ctx, c, "/controller/rebalance", WithForm(form)); err != nil {
		return err
	}

	for _, node := range remaining {
		c.removeConnected(node)
	}

	if opts.NoWait {
		return nil
	}
	return c.WaitForRebalance(ctx, opts.Timeout)
}

// WaitForRebalance polls the rebalance status every 500ms until it reports
// none or the timeout (default 600s) elapses.
func (c *Cluster) WaitForRebalance(ctx context.Context, timeout time.Duration) error {
	if timeout == 0 {
		timeout = 600 * time.Second
	}
	deadline, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	op := func() error {
		res, err := GetSucc(deadline, c, "/pools/default/rebalanceProgress")
		if err != nil {
			return backoff.Permanent(err)
		}
		var progress struct {
			Status string `json:"status"`
		}
		if err := res.JSON(&progress); err != nil {
			return backoff.Permanent(err)
		}
		if progress.Status != "none" {
			return RebalanceError.New("rebalance still running (status %q)", progress.Status)
		}
		return nil
	}
	b := backoff.WithContext(backoff.NewConstantBackOff(500*time.Millisecond), deadline)
	if err := backoff.Retry(op, b); err != nil {
		return RebalanceError.Wrap(err, "rebalance did not finish within %s", timeout)
	}
	return nil
}

// WaitNodesUp waits for every node's management API to answer, each with its
// own timeout. Nodes recently removed from a cluster take a while to come
// back, so callers add nodes back only after this succeeds.
func (c *Cluster) WaitNodesUp(ctx context.Context, timeout time.Duration) error {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	for _, node := range c.Nodes {
		deadline, cancel := context.WithTimeout(ctx, timeout)
		op := func() error {
			_, err := GetSucc(deadline, node, "/pools")
			return err
		}
		b := backoff.WithContext(backoff.NewConstantBackOff(time.Second), deadline)
		err := backoff.Retry(op, b)
		cancel()
		if err != nil {
			return ConnectError.Wrap(err, "node %s did not come up within %s", node, timeout)
		}
	}
	return nil
}

// AddNode joins newNode into the cluster with the given services and
// optionally rebalances.
func (c *Cluster) AddNode(ctx context.Context, newNode Node, services string, doRebalance bool) error {
	if services == "" {
		services = "kv"
	}
	// Joining requires the TLS-capable cluster port.
	memberPort := 10000 + newNode.Port
	form := url.Values{}
	form.Set("user", c.Auth.Username)
	form.Set("password", c.Auth.Password)
	form.Set("hostname", fmt.Sprintf("https://%s:%d", newNode.Host, memberPort))
	form.Set("services", services)

	if _, err := PostSucc(ctx, c, "/controller/addNode", WithForm(form)); err != nil {
		return err
	}
	c.ConnectedNodes = append(c.ConnectedNodes, newNode)

	if doRebalance {
		return c.Rebalance(ctx, RebalanceOptions{})
	}
	return nil
}

// FailoverNode fails over the victim, gracefully unless told otherwise, and
// waits for the resulting rebalance.
func (c *Cluster) FailoverNode(ctx context.Context, victim Node, graceful, allowUnsafe bool) error {
	otpNodes, err := c.OTPNodes(ctx)
	if err != nil {
		return err
	}
	otp, ok := otpNodes[victim.Hostname()]
	if !ok {
		return NodeNotFoundError.New("node %s is not part of the cluster", victim)
	}

	endpoint := "/controller/startFailover"
	if graceful {
		endpoint = "/controller/startGracefulFailover"
	}
	form := url.Values{}
	form.Set("otpNode", otp)
	form.Set("allowUnsafe", fmt.Sprintf("%t", allowUnsafe))

	if _, err := PostSucc(ctx, c, endpoint, WithForm(form)); err != nil {
		return err
	}
	c.removeConnected(victim)
	return c.WaitForRebalance(ctx, 0)
}

// RecoverNode marks a failed-over node for full or delta recovery and
// optionally rebalances it back in.
func (c *Cluster) RecoverNode(ctx context.Context, node Node, recoveryType string, doRebalance bool) error {
	if recoveryType != "full" && recoveryType != "delta" {
		return RequestError.New("recovery type must be full or delta, got %q", recoveryType)
	}
	otpNodes, err := c.OTPNodes(ctx)
	if err != nil {
		return err
	}
	otp, ok := otpNodes[node.Hostname()]
	if !ok {
		return NodeNotFoundError.New("node %s is not part of the cluster", node)
	}

	form := url.Values{}
	form.Set("otpNode", otp)
	form.Set("recoveryType", recoveryType)
	if _, err := PostSucc(ctx, c, "/controller/setRecoveryType", WithForm(form)); err != nil {
		return err
	}
	c.ConnectedNodes = append(c.ConnectedNodes, node)

	if doRebalance {
		return c.Rebalance(ctx, RebalanceOptions{})
	}
	return nil
}

// CreateBucket creates a bucket once any running rebalance has finished.
func (c *Cluster) CreateBucket(ctx context.Context, form url.Values) error {
	if err := c.WaitForRebalance(ctx, 0); err != nil {
		return err
	}
	_, err := PostSucc(ctx, c, "/pools/default/buckets",
		WithForm(form), WithExpectedCodes(202))
	return err
}

// DeleteBucket removes a bucket, tolerating it being already gone.
func (c *Cluster) DeleteBucket(ctx context.Context, name string) error {
	if err := c.WaitForRebalance(ctx, 0); err != nil {
		return err
	}
	_, err := EnsureDeleted(ctx, c, "/pools/default/buckets/"+name)
	return err
}

// DeleteAllBuckets removes every bucket on the cluster.
func (c *Cluster) DeleteAllBuckets(ctx context.Context) error {
	res, err := GetSucc(ctx, c, "/pools/default/buckets")
	if err != nil {
		return err
	}
	var buckets []struct {
		Name string `json:"name"`
	}
	if err := res.JSON(&buckets); err != nil {
		return err
	}
	for _, b := range buckets {
		if err := c.DeleteBucket(ctx, b.Name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cluster) removeConnected(node Node) {
	for i, n := range c.ConnectedNodes {
		if n.Hostname() == node.Hostname() {
			c.ConnectedNodes = append(c.ConnectedNodes[:i], c.ConnectedNodes[i+1:]...)
			return
		}
	}
}
