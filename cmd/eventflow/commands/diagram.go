package commands

import (
	"fmt"

	"github.com/mosaicnetworks/eventflow/src/hashgraph"
	"github.com/mosaicnetworks/eventflow/src/peers"
	"github.com/mosaicnetworks/eventflow/src/pipeline"
	"github.com/spf13/cobra"
)

// NewDiagramCmd returns the command that renders the pipeline's wiring
// diagram as mermaid text.
func NewDiagramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "diagram",
		Short:   "Print the pipeline wiring diagram",
		PreRunE: loadConfig,
		RunE:    diagram,
	}
	AddRunFlags(cmd)
	return cmd
}

func diagram(cmd *cobra.Command, args []string) error {
	peerSet, err := peers.NewJSONPeerSet(_config.DataDir).PeerSet()
	if err != nil {
		// The diagram does not depend on the actual peers; build a
		// placeholder set when no peers.json is available.
		peerSet = peers.NewPeerSet([]*peers.Peer{
			peers.NewPeer(fmt.Sprintf("0X%064X", 1), "node0"),
			peers.NewPeer(fmt.Sprintf("0X%064X", 2), "node1"),
		})
	}

	// Force the in-memory store: rendering a diagram must not touch the db.
	_config.Store = false

	p, err := pipeline.NewPipeline(_config, peerSet,
		func(*hashgraph.ConsensusRound) {}, nil)
	if err != nil {
		return err
	}
	defer p.Shutdown()

	fmt.Println(p.GenerateWiringDiagram())

	return nil
}
