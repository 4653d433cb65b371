// Package hashgraph implements the consensus engine.
//
// Events are inserted in topological order. Each event is assigned a round
// and a witness flag on insertion; fame of witnesses is then decided by
// virtual voting, and once every witness of a round is decided the engine
// assigns received rounds and consensus timestamps to the events the round's
// judges see, sorts them, and emits a ConsensusRound. Emitting a round also
// advances the non-ancient event window, which garbage-collects the oldest
// part of the graph.
//
// The engine is deterministic: two nodes that insert the same events, in any
// topological order, emit identical consensus rounds.
package hashgraph
