// Package pipeline assembles the consensus intake pipeline on the wiring
// model.
//
// Gossip events enter through a bounded intake stage that verifies their
// signatures, flow through the orphan buffer and the consensus linker, and
// reach the consensus engine on its own OS thread. Decided rounds fan out to
// the round consumer and the state signer. Event-window updates travel the
// opposite way, injected into the orphan buffer and linker stages so that
// window advancement can never be blocked by event backpressure.
package pipeline
