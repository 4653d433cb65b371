// Package peers defines the concept of a peer and provides a wrapper around a
// list of peers.
//
// A peer is a participant in the consensus network. It is identified by a
// public key and carries a consensus weight. The voting thresholds used by the
// consensus algorithm (strong majority, etc.) are computed over weights, not
// over peer counts, so a network where all peers have weight 1 degrades to
// plain one-peer-one-vote.
package peers
