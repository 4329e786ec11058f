package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/alkanes/alkanescore/cmd/alkanes/cmd"
)

func main() {
	rootCmd, err := NewServiceCommand()
	if err != nil {
		log.Fatalf("start alkanes failed.err:%v", err)
	}

	if err = rootCmd.Execute(); err != nil {
		log.Fatalf("alkanes failed.err:%v", err)
	}
}

func NewServiceCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:           "alkanes <command> [arguments]",
		Short:         "Alkanes is a tool for inspecting alkanes messages, fuel and traces.",
		Long:          "Alkanes is a tool for inspecting alkanes messages, fuel and traces.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       "alkanes decode 0200a1f40a",
	}

	// cmd version
	rootCmd.AddCommand(cmd.GetVersionCmd().GetCmd())
	// cmd decode
	rootCmd.AddCommand(cmd.GetDecodeCmd().GetCmd())
	// cmd fuel
	rootCmd.AddCommand(cmd.GetFuelCmd().GetCmd())
	// cmd trace
	rootCmd.AddCommand(cmd.GetTraceCmd().GetCmd())
	return rootCmd, nil
}
