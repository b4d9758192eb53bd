// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgsMergeOverlays(t *testing.T) {
	base := Args{"num_nodes": 1, "nooutput": true}
	merged := base.Clone().Merge(Args{"num_nodes": 3, "protocol": "ipv6"})

	n, ok := merged.Int("num_nodes")
	require.True(t, ok)
	require.Equal(t, 3, n)
	require.True(t, merged.Bool("nooutput"))
	proto, ok := merged.String("protocol")
	require.True(t, ok)
	require.Equal(t, "ipv6", proto)

	// the original is untouched
	n, _ = base.Int("num_nodes")
	require.Equal(t, 1, n)
}

func TestArgsTypedGetters(t *testing.T) {
	args := Args{"count": int64(5), "flag": true, "name": "x"}

	n, ok := args.Int("count")
	require.True(t, ok)
	require.Equal(t, 5, n)

	_, ok = args.Int("name")
	require.False(t, ok)
	require.False(t, args.Bool("missing"))
	_, ok = args.String("flag")
	require.False(t, ok)
}

func TestArgsFormatIsDeterministic(t *testing.T) {
	args := Args{"b": 2, "a": 1, "c": true}
	require.Equal(t, "a=1 b=2 c=true", args.Format())
}
