// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"code.hybscloud.com/idiom/internal/config"
	"code.hybscloud.com/idiom/internal/runtime"
)

// newRoot constructs the qosctl command tree.
func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "qosctl",
		Short:         "QoS policy codec and session tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "configuration file (yaml, toml or json)")

	root.AddCommand(newEncodeCommand())
	root.AddCommand(newDecodeCommand())
	root.AddCommand(newTableCommand())
	root.AddCommand(newStoreCommand())
	root.AddCommand(newStreamsCommand())
	root.AddCommand(newProbeCommand())
	return root
}

// loadConfig reads --config, or returns the defaults when it is unset.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

// openRuntime loads the configuration and opens its runtime, logging to
// the command's error stream.
func openRuntime(cmd *cobra.Command) (*runtime.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := runtime.NewLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, err
	}
	return runtime.Open(runtime.Options{Config: cfg, Logger: log})
}

// readInput reads the named file, or standard input for "-" or no name.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
