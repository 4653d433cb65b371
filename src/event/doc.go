// Package event defines the data model of the consensus core: event
// descriptors, gossip events, and the non-ancient event window.
//
// Events form a DAG through parent references. A parent is referenced by an
// EventDescriptor, which identifies an event without requiring its full body.
// The window defines which part of the DAG is still relevant; events below the
// ancient threshold are garbage and every stage of the pipeline discards them.
package event
