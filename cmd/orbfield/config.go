package main

import (
	"fmt"

	"github.com/gekko3d/orbfield"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective config as yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if out != "" {
				return orbfield.SaveConfig(out, cfg)
			}
			data, err := orbfield.MarshalConfig(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a file instead of stdout")
	return cmd
}
