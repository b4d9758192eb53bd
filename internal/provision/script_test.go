// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"clusterharness/internal/cluster"
)

func TestFormatArgs(t *testing.T) {
	args := cluster.Args{
		"num_nodes":      2,
		"dont_rename":    true,
		"do_rebalance":   false,
		"protocol":       "ipv6",
		"env":            map[string]any{"BYPASS_SASLAUTHD": nil},
		"wait_for_start": nil,
	}
	flags := formatArgs(args)
	require.Equal(t, []string{
		"--do-rebalance=false",
		"--dont-rename",
		"--env={\"BYPASS_SASLAUTHD\":null}",
		"--num-nodes=2",
		"--protocol=ipv6",
		"--wait-for-start",
	}, flags)
}

func TestNewScriptProvisionerRequiresCommand(t *testing.T) {
	_, err := NewScriptProvisioner("")
	require.Error(t, err)

	p, err := NewScriptProvisioner("./cluster_run")
	require.NoError(t, err)
	require.Equal(t, "./cluster_run", p.Command)
}
