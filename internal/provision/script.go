// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/automa-saga/logx"
	"github.com/joomcode/errorx"

	"clusterharness/internal/cluster"
)

// ScriptProvisioner drives node lifecycle through an external control
// script, the same binary invoked with start, connect and kill subcommands.
// Start is expected to print one process ID per line on stdout, in node
// index order.
type ScriptProvisioner struct {
	// Command is the path to the control script.
	Command string
}

var _ cluster.Provisioner = (*ScriptProvisioner)(nil)

// NewScriptProvisioner returns a provisioner shelling out to the given
// control script.
func NewScriptProvisioner(command string) (*ScriptProvisioner, error) {
	if command == "" {
		return nil, errorx.IllegalArgument.New("provisioner command must not be empty")
	}
	return &ScriptProvisioner{Command: command}, nil
}

func (s *ScriptProvisioner) Start(ctx context.Context, args cluster.Args) (cluster.ProcessHandles, error) {
	out, err := s.run(ctx, "start", args)
	if err != nil {
		return nil, err
	}

	startIndex, _ := args.Int("start_index")
	var handles cluster.ProcessHandles
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			return nil, ProvisionError.New("unexpected start output line %q, want a process id", line)
		}
		handles = append(handles, cluster.ProcessHandle{
			PID:       pid,
			NodeIndex: startIndex + len(handles),
		})
	}

	numNodes, _ := args.Int("num_nodes")
	if len(handles) != numNodes {
		return nil, ProvisionError.New("started %d node processes, expected %d", len(handles), numNodes)
	}
	return handles, nil
}

func (s *ScriptProvisioner) Connect(ctx context.Context, args cluster.Args) error {
	_, err := s.run(ctx, "connect", args)
	return err
}

func (s *ScriptProvisioner) Kill(ctx context.Context, handles cluster.ProcessHandles, nodeURLs []string) error {
	args := cluster.Args{}
	pids := make([]string, 0, len(handles))
	for _, h := range handles {
		pids = append(pids, strconv.Itoa(h.PID))
	}
	args["pids"] = strings.Join(pids, ",")
	args["urls"] = strings.Join(nodeURLs, ",")
	_, err := s.run(ctx, "kill", args)
	return err
}

func (s *ScriptProvisioner) run(ctx context.Context, subcommand string, args cluster.Args) ([]byte, error) {
	argv := append([]string{subcommand}, formatArgs(args)...)
	logx.As().Debug().Str("command", s.Command).Str("args", strings.Join(argv, " ")).
		Msg("Invoking cluster control script")

	cmd := exec.CommandContext(ctx, s.Command, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, ProvisionError.Wrap(err, "control script %s %s failed: %s",
			s.Command, subcommand, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// formatArgs renders an args map as sorted --key=value flags. Underscores
// become hyphens; booleans become bare or negated flags; composite values
// are passed as JSON.
func formatArgs(args cluster.Args) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	flags := make([]string, 0, len(keys))
	for _, k := range keys {
		name := "--" + strings.ReplaceAll(k, "_", "-")
		switch v := args[k].(type) {
		case nil:
			flags = append(flags, name)
		case bool:
			if v {
				flags = append(flags, name)
			} else {
				flags = append(flags, name+"=false")
			}
		case string:
			flags = append(flags, fmt.Sprintf("%s=%s", name, v))
		case int:
			flags = append(flags, fmt.Sprintf("%s=%d", name, v))
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				flags = append(flags, fmt.Sprintf("%s=%v", name, v))
				continue
			}
			flags = append(flags, fmt.Sprintf("%s=%s", name, encoded))
		}
	}
	return flags
}
