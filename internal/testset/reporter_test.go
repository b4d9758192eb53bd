// SPDX-License-Identifier: Apache-2.0

package testset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestReportFailed(t *testing.T) {
	r := NewReport()
	require.NotEmpty(t, r.RunID)
	require.False(t, r.Failed())

	r.Add(Result{TestSet: "S", Test: "testOne", Status: StatusPassed})
	require.False(t, r.Failed())

	r.Add(Result{TestSet: "S", Test: "testTwo", Status: StatusNotRun})
	require.True(t, r.Failed())
}

func TestReportWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()

	r := NewReport()
	r.Add(
		Result{TestSet: "S", Test: "testOne", Status: StatusPassed, Duration: 120 * time.Millisecond},
		Result{TestSet: "S", Test: "testTwo", Status: StatusFailed, Error: "boom"},
	)
	r.Finish()

	path, err := r.WriteFile(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "report-"+r.RunID+".yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Report
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	require.Equal(t, r.RunID, loaded.RunID)
	require.Len(t, loaded.Results, 2)
	require.Equal(t, "boom", loaded.Results[1].Error)
}
