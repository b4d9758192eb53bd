// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/automa-saga/logx"
	"github.com/gofrs/flock"
	"github.com/joomcode/errorx"
	"github.com/spf13/cobra"

	"clusterharness/internal/cluster"
	"clusterharness/internal/config"
	"clusterharness/internal/provision"
	"clusterharness/internal/requirements"
	"clusterharness/internal/scheduler"
	"clusterharness/internal/testset"
)

var (
	flagCluster     string
	flagUser        string
	flagPassword    string
	flagNumNodes    int
	flagTests       string
	flagKeep        bool
	flagProvisioner string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run test sets",
		Long:  "Groups the selected test sets by cluster requirements and runs each group on a shared cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(cmd)
		},
	}
)

func init() {
	runCmd.Flags().StringVar(&flagCluster, "cluster", "", "address of an existing cluster (host:port); provisions nodes locally when unset")
	runCmd.Flags().StringVarP(&flagUser, "user", "u", "", "cluster admin username")
	runCmd.Flags().StringVarP(&flagPassword, "password", "p", "", "cluster admin password")
	runCmd.Flags().IntVarP(&flagNumNodes, "num-nodes", "n", 0, "node count of the existing cluster (0 = discover)")
	runCmd.Flags().StringVarP(&flagTests, "tests", "t", "", "test filter: TestSet or TestSet.test, comma separated (empty = all)")
	runCmd.Flags().BoolVarP(&flagKeep, "keep-work-dirs", "k", false, "keep node data directories after the run")
	runCmd.Flags().StringVar(&flagProvisioner, "provisioner", "./cluster_run", "path to the cluster control script")
}

func runHarness(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.Get()
	if cmd.Flags().Changed("cluster") {
		cfg.Cluster = flagCluster
	}
	if cmd.Flags().Changed("user") {
		cfg.Username = flagUser
	}
	if cmd.Flags().Changed("password") {
		cfg.Password = flagPassword
	}
	if cmd.Flags().Changed("num-nodes") {
		cfg.NumNodes = flagNumNodes
	}
	if cmd.Flags().Changed("tests") {
		cfg.Tests = flagTests
	}
	if cmd.Flags().Changed("keep-work-dirs") {
		cfg.KeepWorkDirs = flagKeep
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return errorx.ExternalError.Wrap(err, "failed to create work directory %s", cfg.WorkDir)
	}

	// One harness at a time per work dir; two runs provisioning into the
	// same port range would fight over nodes.
	lockPath := filepath.Join(cfg.WorkDir, ".harness.lock")
	fileLock := flock.New(lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, time.Second)
	if err != nil {
		return errorx.IllegalState.Wrap(err, "failed to acquire file lock %q", lockPath)
	}
	if !locked {
		return errorx.IllegalState.New("timed out acquiring file lock %q, is another harness running?", lockPath)
	}
	defer func() {
		e := fileLock.Unlock()
		if e != nil {
			logx.As().Warn().Err(e).Str("lockPath", lockPath).Msg("failed to unlock work dir lock")
		}
	}()

	sels, err := testset.ParseFilter(cfg.Tests)
	if err != nil {
		return err
	}
	if len(sels) == 0 {
		return errorx.IllegalState.New("no test sets selected")
	}

	entries, err := collectEntries(sels)
	if err != nil {
		return err
	}
	groups := scheduler.Schedule(entries)
	logx.As().Info().Int("testsets", len(sels)).Int("groups", len(groups)).
		Msg("Scheduled test sets onto cluster configurations")

	report := testset.NewReport()
	auth := cluster.Auth{Username: cfg.Username, Password: cfg.Password}

	if cfg.Cluster != "" {
		err = runOnExisting(ctx, cfg, auth, groups, report)
	} else {
		err = runProvisioned(ctx, cfg, auth, groups, report)
	}
	if err != nil {
		return err
	}

	report.Finish()
	fmt.Println()
	report.PrintSummary()
	path, err := report.WriteFile(cfg.WorkDir)
	if err != nil {
		return err
	}
	logx.As().Info().Str("report", path).Msg("Run report written")

	if report.Failed() {
		return errorx.IllegalState.New("%d of %d tests did not pass",
			failedCount(report), len(report.Results))
	}
	return nil
}

// collectEntries expands each selected test set into one schedulable entry
// per requirement set it declares. Invalid declarations are gathered and
// reported together, so one bad test set does not hide the next.
func collectEntries(sels []testset.Selection) ([]scheduler.Entry[testset.Selection], error) {
	var entries []scheduler.Entry[testset.Selection]
	var bad []string
	for _, sel := range sels {
		reqSets, err := sel.New().Requirements()
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s: %v", sel.Name, err))
			continue
		}
		for _, rs := range reqSets {
			entries = append(entries, scheduler.Entry[testset.Selection]{Reqs: rs, Item: sel})
		}
	}
	if len(bad) > 0 {
		return nil, errorx.IllegalArgument.New("invalid cluster requirements:\n  %s",
			strings.Join(bad, "\n  "))
	}
	return entries, nil
}

// runOnExisting runs each group against a cluster somebody else owns. The
// cluster is never reconfigured to fit a group; a group the cluster does
// not already satisfy is reported as not run.
func runOnExisting(ctx context.Context, cfg config.Config, auth cluster.Auth,
	groups []scheduler.Group[testset.Selection], report *testset.Report) error {

	host, port, err := splitClusterAddress(cfg.Cluster)
	if err != nil {
		return err
	}
	c, err := cluster.ConnectExisting(ctx, host, port, cfg.NumNodes, auth)
	if err != nil {
		return err
	}
	logx.As().Info().Str("address", cfg.Cluster).Int("nodes", len(c.Nodes)).
		Msg("Connected to existing cluster")

	for _, g := range groups {
		unmet, err := g.Reqs.UnmetRequirements(ctx, c)
		if err != nil {
			return err
		}
		if len(unmet) > 0 {
			skipGroup(g, requirements.NewUnsatisfiableError(unmet), report)
			continue
		}
		runGroup(ctx, g, c, report)
	}
	return nil
}

// runProvisioned runs each group on a locally provisioned cluster, reusing
// or replacing the previous group's cluster as its requirements allow.
func runProvisioned(ctx context.Context, cfg config.Config, auth cluster.Auth,
	groups []scheduler.Group[testset.Selection], report *testset.Report) error {

	prov, err := provision.NewScriptProvisioner(flagProvisioner)
	if err != nil {
		return err
	}
	opts := provision.Options{
		Auth:    auth,
		WorkDir: filepath.Join(cfg.WorkDir, "nodes"),
	}

	var current *cluster.Cluster
	for _, g := range groups {
		logx.As().Info().Str("requirements", g.Reqs.String()).Int("testsets", len(g.Items)).
			Msg("Running test set group")
		current, err = provision.GetAppropriateCluster(ctx, prov, current, g.Reqs, opts)
		if err != nil {
			return err
		}
		runGroup(ctx, g, current, report)
	}

	if current != nil && !cfg.KeepWorkDirs {
		if err := current.Teardown(ctx); err != nil {
			logx.As().Warn().Err(err).Msg("Failed to tear down cluster after run")
		}
	}
	return nil
}

func runGroup(ctx context.Context, g scheduler.Group[testset.Selection],
	c *cluster.Cluster, report *testset.Report) {

	for _, sel := range g.Items {
		results := testset.Run(ctx, sel, c)
		for _, res := range results {
			testset.PrintResult(res)
		}
		report.Add(results...)
	}
}

func skipGroup(g scheduler.Group[testset.Selection], cause error, report *testset.Report) {
	logx.As().Warn().Err(cause).Msg("Skipping test set group, cluster does not satisfy requirements")
	for _, sel := range g.Items {
		for _, t := range sel.Selected {
			res := testset.Result{
				TestSet: sel.Name,
				Test:    t.Name,
				Status:  testset.StatusNotRun,
				Error:   cause.Error(),
			}
			testset.PrintResult(res)
			report.Add(res)
		}
	}
}

func splitClusterAddress(address string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		// Bare host, default management port.
		return address, cluster.BaseAPIPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, errorx.IllegalFormat.Wrap(err, "invalid port in cluster address %q", address)
	}
	return host, port, nil
}

func failedCount(report *testset.Report) int {
	n := 0
	for _, res := range report.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}
