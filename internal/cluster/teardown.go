// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"sync"

	"github.com/automa-saga/logx"
)

// The teardown registry guarantees that provisioned node processes are killed
// even when a run aborts. Callbacks are registered right after node start and
// unregistered once a cluster is torn down cleanly; main runs whatever is
// left before exiting on a fatal path.

// TeardownHandle identifies a registered callback for later removal.
type TeardownHandle struct {
	id int
}

type teardownEntry struct {
	id int
	fn func(ctx context.Context)
}

var (
	teardownMu   sync.Mutex
	teardowns    []teardownEntry
	teardownNext int
)

// Register adds a callback to run on abnormal exit.
func Register(fn func(ctx context.Context)) *TeardownHandle {
	teardownMu.Lock()
	defer teardownMu.Unlock()
	teardownNext++
	teardowns = append(teardowns, teardownEntry{id: teardownNext, fn: fn})
	return &TeardownHandle{id: teardownNext}
}

// Unregister drops a previously registered callback.
func Unregister(h *TeardownHandle) {
	if h == nil {
		return
	}
	teardownMu.Lock()
	defer teardownMu.Unlock()
	for i, e := range teardowns {
		if e.id == h.id {
			teardowns = append(teardowns[:i], teardowns[i+1:]...)
			return
		}
	}
}

// RunTeardowns runs all pending callbacks, most recent first, and clears the
// registry.
func RunTeardowns(ctx context.Context) {
	teardownMu.Lock()
	pending := teardowns
	teardowns = nil
	teardownMu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i].fn(ctx)
	}
	if len(pending) > 0 {
		logx.As().Info().Int("count", len(pending)).Msg("Ran pending cluster teardowns")
	}
}

// PendingTeardowns reports how many callbacks are currently registered.
func PendingTeardowns() int {
	teardownMu.Lock()
	defer teardownMu.Unlock()
	return len(teardowns)
}
