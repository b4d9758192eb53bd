// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// BaseAPIPort is the management port of the node started with index 0; node
// index i listens on BaseAPIPort+i.
const BaseAPIPort = 9000

// Args is the parameter mapping handed to the external node-lifecycle
// collaborator when starting or connecting a cluster.
type Args map[string]any

// Clone returns a shallow copy.
func (a Args) Clone() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge overlays other on top of a, returning a.
func (a Args) Merge(other Args) Args {
	for k, v := range other {
		a[k] = v
	}
	return a
}

// Int fetches an integer argument, tolerating untyped literals.
func (a Args) Int(key string) (int, bool) {
	switch v := a[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

// Bool fetches a boolean argument.
func (a Args) Bool(key string) bool {
	v, _ := a[key].(bool)
	return v
}

// String fetches a string argument.
func (a Args) String(key string) (string, bool) {
	v, ok := a[key].(string)
	return v, ok
}

func (a Args) Format() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, a[k]))
	}
	return strings.Join(parts, " ")
}

// ProcessHandle identifies one started node process.
type ProcessHandle struct {
	PID       int
	NodeIndex int
}

// ProcessHandles are the opaque handles returned by the collaborator's start
// call; they are only ever passed back to Kill.
type ProcessHandles []ProcessHandle

// Provisioner is the external node-lifecycle collaborator. Start boots node
// processes, Connect joins them into a cluster, Kill terminates previously
// started processes. Start and Connect failures are treated as fatal
// environment faults by the caller; they are never retried.
type Provisioner interface {
	Start(ctx context.Context, args Args) (ProcessHandles, error)
	Connect(ctx context.Context, args Args) error
	Kill(ctx context.Context, handles ProcessHandles, nodeURLs []string) error
}
