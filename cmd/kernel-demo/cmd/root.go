// Package cmd holds the kernel-demo commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "kernel-demo",
	Short: "Reference service built on the OmniPulse shared kernel",
	Long: `kernel-demo runs a tenant scoped user service that exercises the
shared kernel end to end: JWT authentication, the request context filter,
the error translator, audited MySQL records and the logging aspect.

Configuration is read from the YAML file given with --config and from
KERNEL_* environment variables, which take precedence.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults and environment)")
}
