package commands

import (
	"github.com/mosaicnetworks/eventflow/src/config"
	"github.com/spf13/cobra"
)

var _config = config.NewDefaultConfig()

// RootCmd is the root command for eventflow
var RootCmd = &cobra.Command{
	Use:              "eventflow",
	Short:            "hashgraph consensus core",
	TraverseChildren: true,
}
