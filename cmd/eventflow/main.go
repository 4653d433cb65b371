package main

import (
	"os"

	cmd "github.com/mosaicnetworks/eventflow/cmd/eventflow/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.NewRunCmd(),
		cmd.NewDiagramCmd(),
		cmd.NewKeygenCmd(),
		cmd.VersionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
