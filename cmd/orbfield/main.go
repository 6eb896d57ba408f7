package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/gekko3d/orbfield"
	"github.com/gekko3d/orbfield/logging"
	"github.com/spf13/cobra"
)

func init() {
	// GLFW and the WebGPU surface must stay on the main thread
	runtime.LockOSThread()
}

var (
	configFile string
	count      int
	seed       int64
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "orbfield",
		Short:         "a field of bouncing, colliding orbs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().IntVar(&count, "count", 0, "number of orbs (overrides config)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "random seed, 0 picks one")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")

	rootCmd.AddCommand(newRunCmd(), newSimulateCmd(), newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads --config onto the defaults and applies flag overrides.
func loadConfig(cmd *cobra.Command) (orbfield.Config, error) {
	cfg := orbfield.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = orbfield.LoadConfig(configFile); err != nil {
			return cfg, err
		}
	}
	if cmd.Flags().Changed("count") {
		if count < 0 {
			return cfg, fmt.Errorf("--count must not be negative")
		}
		cfg.Count = count
	}
	return cfg, nil
}

func newLogger() logging.Logger {
	return logging.NewDefaultLogger("orbfield", debug)
}
