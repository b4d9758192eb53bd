// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTeardownRegistryRunsLIFO(t *testing.T) {
	var order []string
	h1 := Register(func(ctx context.Context) { order = append(order, "first") })
	h2 := Register(func(ctx context.Context) { order = append(order, "second") })
	require.NotNil(t, h1)
	require.NotNil(t, h2)
	require.Equal(t, 2, PendingTeardowns())

	RunTeardowns(context.Background())
	require.Equal(t, []string{"second", "first"}, order)
	require.Equal(t, 0, PendingTeardowns())

	// running again is a no-op
	RunTeardowns(context.Background())
	require.Equal(t, 2, len(order))
}

func TestTeardownUnregister(t *testing.T) {
	ran := false
	h := Register(func(ctx context.Context) { ran = true })
	Unregister(h)
	require.Equal(t, 0, PendingTeardowns())

	RunTeardowns(context.Background())
	require.False(t, ran)

	// unregistering twice or unregistering nil must not panic
	Unregister(h)
	Unregister(nil)
}
