// SPDX-License-Identifier: Apache-2.0

// Package provision translates requirement sets into collaborator start and
// connect parameters and drives cluster creation.
package provision

import (
	"context"
	"fmt"

	"github.com/automa-saga/automa"
	"github.com/automa-saga/logx"

	"clusterharness/internal/cluster"
	"clusterharness/internal/requirements"
)

const (
	startNodesStepID    = "start-nodes"
	connectNodesStepID  = "connect-nodes"
	attachClusterStepID = "attach-cluster"
	validateStepID      = "validate-requirements"
)

// Options carries the run-level parameters for building one cluster.
type Options struct {
	Auth       cluster.Auth
	StartIndex int
	// WorkDir is the base directory for node data; the actual directory
	// gets the start index appended so consecutive clusters never share
	// state.
	WorkDir string
}

// CreateCluster builds a cluster satisfying the given requirement set. The
// start, connect, attach and validate phases run as a workflow stopping on
// first error; any failure surfaces as a fatal provisioning error. A
// teardown callback is registered as soon as node processes exist, so they
// are killed even when connect or validation fails.
func CreateCluster(ctx context.Context, p cluster.Provisioner, set *requirements.Set, opts Options) (*cluster.Cluster, error) {
	startArgs := cluster.Args{
		"start_index": opts.StartIndex,
		"root_dir":    fmt.Sprintf("%s-%d", opts.WorkDir, opts.StartIndex),
	}.Merge(set.StartArgs())

	connectArgs := cluster.Args{
		"start_index": opts.StartIndex,
	}.Merge(set.ConnectArgs(startArgs))

	// Join and add-node endpoints reject name forms of loopback, so nodes
	// are always addressed by raw IP.
	address := "127.0.0.1"
	if protocol, _ := connectArgs.String("protocol"); protocol == "ipv6" {
		address = "::1"
	}
	numNodes, _ := startArgs.Int("num_nodes")
	numConnected, _ := connectArgs.Int("num_nodes")
	basePort := cluster.BaseAPIPort + opts.StartIndex

	nodes := make([]cluster.Node, 0, numNodes)
	for i := 0; i < numNodes; i++ {
		nodes = append(nodes, cluster.NewNode(address, basePort+i, opts.Auth))
	}

	var (
		handles  cluster.ProcessHandles
		teardown *cluster.TeardownHandle
		built    *cluster.Cluster
	)

	startStep := automa.NewStepBuilder().WithId(startNodesStepID).
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			logx.As().Info().Str("args", startArgs.Format()).Msg("Starting cluster nodes")
			var err error
			handles, err = p.Start(ctx, startArgs)
			if err != nil {
				return automa.StepFailureReport(stp.Id(), automa.WithError(err))
			}
			// From here on the node processes must not outlive an
			// aborted run.
			urls := cluster.NodeURLs(nodes)
			teardown = cluster.Register(func(ctx context.Context) {
				if err := p.Kill(ctx, handles, urls); err != nil {
					logx.As().Error().Err(err).Msg("Failed to kill cluster nodes during teardown")
				}
			})
			return automa.StepSuccessReport(stp.Id())
		})

	connectStep := automa.NewStepBuilder().WithId(connectNodesStepID).
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			logx.As().Info().Str("args", connectArgs.Format()).Msg("Connecting cluster nodes")
			if err := p.Connect(ctx, connectArgs); err != nil {
				return automa.StepFailureReport(stp.Id(), automa.WithError(err))
			}
			return automa.StepSuccessReport(stp.Id())
		})

	attachStep := automa.NewStepBuilder().WithId(attachClusterStepID).
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			c, err := cluster.Attach(ctx, nodes, numConnected, opts.StartIndex, handles, opts.Auth, p)
			if err != nil {
				return automa.StepFailureReport(stp.Id(), automa.WithError(err))
			}
			c.SetTeardownHandle(teardown)
			built = c
			return automa.StepSuccessReport(stp.Id())
		})

	validateStep := automa.NewStepBuilder().WithId(validateStepID).
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			unmet, err := set.UnmetRequirements(ctx, built)
			if err != nil {
				return automa.StepFailureReport(stp.Id(), automa.WithError(err))
			}
			if len(unmet) > 0 {
				err := NewResidualUnmetError(requirements.FormatList(unmet))
				return automa.StepFailureReport(stp.Id(), automa.WithError(err))
			}
			return automa.StepSuccessReport(stp.Id())
		})

	wf, err := automa.NewWorkflowBuilder().
		WithId("provision-cluster").
		Steps(startStep, connectStep, attachStep, validateStep).
		WithExecutionMode(automa.StopOnError).
		Build()
	if err != nil {
		return nil, ProvisionError.Wrap(err, "failed to build provisioning workflow")
	}

	report := wf.Execute(ctx)
	if report.Error != nil {
		return nil, ProvisionError.Wrap(report.Error, "cluster provisioning failed for %s", set)
	}
	return built, nil
}

// GetAppropriateCluster returns a cluster satisfying the requirement set,
// preferring the one already at hand: used unchanged when every requirement
// is met, reconfigured in place when the unmet ones allow it, otherwise torn
// down and replaced by a freshly provisioned cluster starting past the node
// indices the old one used.
func GetAppropriateCluster(ctx context.Context, p cluster.Provisioner, existing *cluster.Cluster,
	set *requirements.Set, opts Options) (*cluster.Cluster, error) {

	if existing != nil {
		unmet, err := set.UnmetRequirements(ctx, existing)
		if err != nil {
			return nil, err
		}
		if len(unmet) == 0 {
			return existing, nil
		}

		satisfiable, unsatisfied, err := set.IsSatisfiable(ctx, existing)
		if err != nil {
			return nil, err
		}
		if satisfiable {
			for _, r := range unsatisfied {
				logx.As().Info().Str("requirement", r.String()).Msg("Reconfiguring cluster to meet requirement")
				if err := r.MakeMet(ctx, existing); err != nil {
					return nil, err
				}
			}
			return existing, nil
		}

		if err := existing.Teardown(ctx); err != nil {
			return nil, err
		}
		opts.StartIndex = existing.StartIndex + len(existing.Processes)
	}

	logx.As().Info().Str("requirements", set.String()).Msg("Starting cluster to satisfy requirements")
	return CreateCluster(ctx, p, set, opts)
}
