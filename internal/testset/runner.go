// SPDX-License-Identifier: Apache-2.0

package testset

import (
	"context"
	"time"

	"github.com/automa-saga/logx"

	"clusterharness/internal/cluster"
)

// Status is the outcome of a single test.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusNotRun Status = "not_run"
)

// Result records the outcome of one test of one test set.
type Result struct {
	TestSet  string        `yaml:"testset"`
	Test     string        `yaml:"test"`
	Status   Status        `yaml:"status"`
	Error    string        `yaml:"error,omitempty"`
	Duration time.Duration `yaml:"duration"`
}

// Failed reports whether the result counts against the run.
func (r Result) Failed() bool {
	return r.Status != StatusPassed
}

// Run executes the selected tests of one test set against the given cluster.
// A setup failure marks every test failed without running any. A test
// teardown failure aborts the remaining tests of the set, since the cluster
// can no longer be trusted to be in the state the next test expects. The
// set-level teardown always runs once setup has been attempted.
func Run(ctx context.Context, sel Selection, c *cluster.Cluster) []Result {
	logx.As().Info().Str("testset", sel.Name).Int("tests", len(sel.Selected)).
		Msg("Running test set")

	ts := sel.New()
	results := make([]Result, 0, len(sel.Selected))

	if err := ts.Setup(ctx, c); err != nil {
		err = SetupError.Wrap(err, "setup of test set %s failed", sel.Name)
		logx.As().Error().Err(err).Msg("Test set setup failed")
		for _, t := range sel.Selected {
			results = append(results, Result{
				TestSet: sel.Name,
				Test:    t.Name,
				Status:  StatusFailed,
				Error:   err.Error(),
			})
		}
		return results
	}

	aborted := false
	var abortErr error
	for _, t := range sel.Selected {
		if aborted {
			results = append(results, Result{
				TestSet: sel.Name,
				Test:    t.Name,
				Status:  StatusNotRun,
				Error:   abortErr.Error(),
			})
			continue
		}

		started := time.Now()
		err := runTest(ctx, t, c)
		elapsed := time.Since(started)

		res := Result{TestSet: sel.Name, Test: t.Name, Status: StatusPassed, Duration: elapsed}
		if err != nil {
			res.Status = StatusFailed
			res.Error = err.Error()
			logx.As().Error().Err(err).Str("test", t.Name).Msg("Test failed")
		}

		if terr := ts.TestTeardown(ctx, c); terr != nil {
			terr = TeardownError.Wrap(terr, "test teardown after %s.%s failed", sel.Name, t.Name)
			logx.As().Error().Err(terr).Msg("Test teardown failed, aborting remaining tests")
			if res.Status == StatusPassed {
				res.Status = StatusFailed
				res.Error = terr.Error()
			}
			aborted = true
			abortErr = terr
		}
		results = append(results, res)
	}

	if err := ts.Teardown(ctx, c); err != nil {
		logx.As().Error().Err(err).Str("testset", sel.Name).Msg("Test set teardown failed")
	}
	return results
}

func runTest(ctx context.Context, t Test, c *cluster.Cluster) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = TestPanicError.New("test %s panicked: %v", t.Name, r)
		}
	}()
	return t.Run(ctx, c)
}
