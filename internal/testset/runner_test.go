// SPDX-License-Identifier: Apache-2.0

package testset

import (
	"context"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"

	"clusterharness/internal/cluster"
)

func failingTest(name string, err error) Test {
	return Test{Name: name, Run: func(ctx context.Context, c *cluster.Cluster) error { return err }}
}

func selection(stub *stubTestSet, tests ...Test) Selection {
	return Selection{
		Registration: Registration{
			Name:  "RunnerSet",
			New:   func() TestSet { return stub },
			Tests: tests,
		},
		Selected: tests,
	}
}

func TestRunAllPass(t *testing.T) {
	stub := &stubTestSet{}
	sel := selection(stub, noopTest("testOne"), noopTest("testTwo"))

	results := Run(context.Background(), sel, nil)
	require.Len(t, results, 2)
	for _, res := range results {
		require.Equal(t, StatusPassed, res.Status)
		require.False(t, res.Failed())
	}
	require.Equal(t, 1, stub.setupCalls)
	require.Equal(t, 1, stub.teardownCalls)
	require.Equal(t, 2, stub.testTeardowns)
}

func TestRunRecordsFailuresAndKeepsGoing(t *testing.T) {
	stub := &stubTestSet{}
	sel := selection(stub,
		failingTest("testBroken", errorx.AssertionFailed.New("boom")),
		noopTest("testFine"),
	)

	results := Run(context.Background(), sel, nil)
	require.Len(t, results, 2)
	require.Equal(t, StatusFailed, results[0].Status)
	require.Contains(t, results[0].Error, "boom")
	require.Equal(t, StatusPassed, results[1].Status)
}

func TestRunSetupFailureFailsAllTests(t *testing.T) {
	stub := &stubTestSet{setupErr: errorx.IllegalState.New("no bucket")}
	sel := selection(stub, noopTest("testOne"), noopTest("testTwo"))

	results := Run(context.Background(), sel, nil)
	require.Len(t, results, 2)
	for _, res := range results {
		require.Equal(t, StatusFailed, res.Status)
		require.Contains(t, res.Error, "no bucket")
	}
	// nothing ran, so neither did any teardown
	require.Equal(t, 0, stub.testTeardowns)
	require.Equal(t, 0, stub.teardownCalls)
}

func TestRunTestTeardownFailureAbortsRemaining(t *testing.T) {
	stub := &stubTestSet{testTeardownErr: errorx.IllegalState.New("cluster state suspect")}
	sel := selection(stub, noopTest("testOne"), noopTest("testTwo"), noopTest("testThree"))

	results := Run(context.Background(), sel, nil)
	require.Len(t, results, 3)
	// the first test passed its run but its teardown failed
	require.Equal(t, StatusFailed, results[0].Status)
	require.Equal(t, StatusNotRun, results[1].Status)
	require.Equal(t, StatusNotRun, results[2].Status)
	require.Equal(t, 1, stub.testTeardowns)
	// the set-level teardown still runs
	require.Equal(t, 1, stub.teardownCalls)
}

func TestRunRecoversPanickingTest(t *testing.T) {
	stub := &stubTestSet{}
	sel := selection(stub, Test{
		Name: "testPanics",
		Run:  func(ctx context.Context, c *cluster.Cluster) error { panic("unexpected") },
	}, noopTest("testAfter"))

	results := Run(context.Background(), sel, nil)
	require.Len(t, results, 2)
	require.Equal(t, StatusFailed, results[0].Status)
	require.Contains(t, results[0].Error, "panicked")
	require.Equal(t, StatusPassed, results[1].Status)
}
