// SPDX-License-Identifier: Apache-2.0

// Package sanity holds a minimal test set exercising the harness end to
// end: one enterprise node, pool status, bucket lifecycle and settings.
package sanity

import (
	"context"
	"net/url"

	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
	"clusterharness/internal/requirements"
	"clusterharness/internal/testset"
)

type sanityTestSet struct{}

func init() {
	testset.Register(testset.Registration{
		Name: "SanityTestSet",
		New:  func() testset.TestSet { return &sanityTestSet{} },
		Tests: []testset.Test{
			{Name: "testPoolsDefault", Run: testPoolsDefault},
			{Name: "testBucketLifecycle", Run: testBucketLifecycle},
			{Name: "testInternalSettings", Run: testInternalSettings},
		},
	})
}

func (s *sanityTestSet) Requirements() ([]*requirements.Set, error) {
	set, err := requirements.NewSet(requirements.Spec{
		Edition:    requirements.EditionEnterprise,
		NumNodes:   1,
		MinMemsize: 256,
	})
	if err != nil {
		return nil, err
	}
	return []*requirements.Set{set}, nil
}

func (s *sanityTestSet) Setup(ctx context.Context, c *cluster.Cluster) error {
	return c.DeleteAllBuckets(ctx)
}

func (s *sanityTestSet) Teardown(ctx context.Context, c *cluster.Cluster) error {
	return nil
}

func (s *sanityTestSet) TestTeardown(ctx context.Context, c *cluster.Cluster) error {
	return c.DeleteAllBuckets(ctx)
}

func testPoolsDefault(ctx context.Context, c *cluster.Cluster) error {
	res, err := cluster.GetSucc(ctx, c, "/pools/default")
	if err != nil {
		return err
	}

	var pool struct {
		Nodes []struct {
			Status string `json:"status"`
		} `json:"nodes"`
	}
	if err := res.JSON(&pool); err != nil {
		return err
	}
	if len(pool.Nodes) != len(c.ConnectedNodes) {
		return errorx.AssertionFailed.New("pool reports %d nodes, cluster has %d connected",
			len(pool.Nodes), len(c.ConnectedNodes))
	}
	for _, n := range pool.Nodes {
		if n.Status != "healthy" {
			return errorx.AssertionFailed.New("node status is %q, want healthy", n.Status)
		}
	}
	return nil
}

func testBucketLifecycle(ctx context.Context, c *cluster.Cluster) error {
	form := url.Values{}
	form.Set("name", "sanity")
	form.Set("ramQuota", "100")
	form.Set("bucketType", "couchbase")
	if err := c.CreateBucket(ctx, form); err != nil {
		return err
	}

	res, err := cluster.GetSucc(ctx, c, "/pools/default/buckets")
	if err != nil {
		return err
	}
	var buckets []struct {
		Name string `json:"name"`
	}
	if err := res.JSON(&buckets); err != nil {
		return err
	}
	found := false
	for _, b := range buckets {
		if b.Name == "sanity" {
			found = true
		}
	}
	if !found {
		return errorx.AssertionFailed.New("bucket sanity missing from bucket list")
	}

	return c.DeleteBucket(ctx, "sanity")
}

func testInternalSettings(ctx context.Context, c *cluster.Cluster) error {
	res, err := cluster.GetSucc(ctx, c, "/internalSettings")
	if err != nil {
		return err
	}
	var settings map[string]any
	if err := res.JSON(&settings); err != nil {
		return err
	}
	if len(settings) == 0 {
		return errorx.AssertionFailed.New("internal settings response is empty")
	}
	return nil
}
