// SPDX-License-Identifier: Apache-2.0

// Package testset holds the test set registry and the machinery that runs
// groups of test sets against a shared cluster.
package testset

import (
	"context"
	"sort"
	"sync"

	"clusterharness/internal/cluster"
	"clusterharness/internal/requirements"
)

// TestSet is a named collection of tests sharing a cluster, setup and
// teardown. Implementations declare the clusters they can run on through
// Requirements; a test set returning more than one requirement set is run
// once per set.
type TestSet interface {
	// Requirements lists the cluster configurations this test set wants
	// to run against.
	Requirements() ([]*requirements.Set, error)

	// Setup runs once before any test of the set.
	Setup(ctx context.Context, c *cluster.Cluster) error

	// Teardown runs once after the last test of the set, regardless of
	// test outcomes.
	Teardown(ctx context.Context, c *cluster.Cluster) error

	// TestTeardown runs after every individual test. A failure here
	// means the cluster state is suspect and aborts the remaining tests
	// of the set.
	TestTeardown(ctx context.Context, c *cluster.Cluster) error
}

// Test is a single named test case within a test set.
type Test struct {
	Name string
	Run  func(ctx context.Context, c *cluster.Cluster) error
}

// Registration binds a test set name to its constructor and test list.
type Registration struct {
	Name  string
	New   func() TestSet
	Tests []Test
}

var (
	registryMu sync.Mutex
	registry   = map[string]Registration{}
)

// Register adds a test set to the global registry. Registering the same
// name twice panics; test set names must be unique across packages.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[reg.Name]; ok {
		panic("testset: duplicate registration of " + reg.Name)
	}
	registry[reg.Name] = reg
}

// All returns every registered test set sorted by name.
func All() []Registration {
	registryMu.Lock()
	defer registryMu.Unlock()
	regs := make([]Registration, 0, len(registry))
	for _, reg := range registry {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Name < regs[j].Name })
	return regs
}

// Lookup returns the registration for the given name.
func Lookup(name string) (Registration, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	reg, ok := registry[name]
	return reg, ok
}
