// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, yamlCfg string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "harness-config-*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(yamlCfg)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

func TestInitializeReadsFile(t *testing.T) {
	path := writeTempConfig(t, `
username: "tester"
password: "secret"
numNodes: 4
workDir: "/tmp/harness-data"
keepWorkDirs: true
log:
  level: "Info"
`)
	require.NoError(t, Initialize(path))

	cfg := Get()
	require.Equal(t, "tester", cfg.Username)
	require.Equal(t, "secret", cfg.Password)
	require.Equal(t, 4, cfg.NumNodes)
	require.Equal(t, "/tmp/harness-data", cfg.WorkDir)
	require.True(t, cfg.KeepWorkDirs)
	require.Equal(t, "Info", cfg.Log.Level)
}

func TestInitializeEnvOverride(t *testing.T) {
	path := writeTempConfig(t, `
username: "fromfile"
workDir: "wd"
`)

	envKey := "HARNESS_USERNAME"
	orig := os.Getenv(envKey)
	require.NoError(t, os.Setenv(envKey, "fromenv"))
	defer func() {
		_ = os.Setenv(envKey, orig)
	}()

	require.NoError(t, Initialize(path))
	require.Equal(t, "fromenv", Get().Username)
}

func TestInitializeMissingFile(t *testing.T) {
	err := Initialize("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestInitializeEmptyPathKeepsDefaults(t *testing.T) {
	defaults := Config{
		Username: "Administrator",
		Password: "asdasd",
		WorkDir:  "test_cluster_data",
	}
	require.NoError(t, Set(&defaults))
	require.NoError(t, Initialize(""))
	require.Equal(t, "Administrator", Get().Username)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Username: "Administrator", WorkDir: "wd"}
	require.NoError(t, valid.Validate())

	noUser := valid
	noUser.Username = ""
	require.Error(t, noUser.Validate())

	badNodes := valid
	badNodes.NumNodes = -1
	require.Error(t, badNodes.Validate())

	noWorkDir := valid
	noWorkDir.WorkDir = ""
	require.Error(t, noWorkDir.Validate())
}
