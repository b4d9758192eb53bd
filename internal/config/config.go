// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"

	"github.com/automa-saga/logx"
	"github.com/joomcode/errorx"
	"github.com/spf13/viper"
)

// Config holds the global configuration for the harness.
type Config struct {
	// Cluster is the address of an existing cluster to run against. When
	// empty the harness provisions its own nodes.
	Cluster  string `yaml:"cluster" json:"cluster"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`

	// NumNodes is the node count used when connecting to an existing
	// cluster; 0 means use however many the cluster reports.
	NumNodes int `yaml:"numNodes" json:"numNodes"`

	// Tests is the default test filter applied when the run command gets
	// no explicit one.
	Tests string `yaml:"tests" json:"tests"`

	// KeepWorkDirs leaves node data directories behind after the run.
	KeepWorkDirs bool   `yaml:"keepWorkDirs" json:"keepWorkDirs"`
	WorkDir      string `yaml:"workDir" json:"workDir"`

	Log logx.LoggingConfig `yaml:"log" json:"log"`
}

var globalConfig = Config{
	Username: "Administrator",
	Password: "asdasd",
	WorkDir:  "test_cluster_data",
	Log: logx.LoggingConfig{
		Level:          "Debug",
		ConsoleLogging: true,
		FileLogging:    false,
	},
}

// Validate checks configuration fields for values the rest of the harness
// cannot work with.
func (c Config) Validate() error {
	if c.Username == "" {
		return errorx.IllegalArgument.New("username must not be empty")
	}
	if c.NumNodes < 0 {
		return errorx.IllegalArgument.New("numNodes must not be negative: %d", c.NumNodes)
	}
	if c.WorkDir == "" {
		return errorx.IllegalArgument.New("workDir must not be empty")
	}
	if strings.ContainsAny(c.WorkDir, " \t") {
		return errorx.IllegalArgument.New("workDir must not contain whitespace: %q", c.WorkDir)
	}
	return nil
}

// Initialize loads the configuration from the specified file.
//
// Parameters:
//   - path: The path to the configuration file.
//
// Returns:
//   - An error if the configuration cannot be loaded.
func Initialize(path string) error {
	if path != "" {
		globalConfig = Config{}
		viper.Reset()
		viper.SetConfigFile(path)
		viper.SetEnvPrefix("HARNESS")
		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		err := viper.ReadInConfig()
		if err != nil {
			return NotFoundError.Wrap(err, "failed to read config file: %s", path).
				WithProperty(errorx.PropertyPayload(), path)
		}

		if err := viper.Unmarshal(&globalConfig); err != nil {
			return errorx.IllegalFormat.Wrap(err, "failed to parse configuration").
				WithProperty(errorx.PropertyPayload(), path)
		}
	}

	return nil
}

// Get returns the loaded configuration.
//
// Returns:
//   - The global configuration.
func Get() Config {
	return globalConfig
}

func Set(c *Config) error {
	globalConfig = *c
	return nil
}
