// Package signing produces state signature transactions for emitted
// consensus rounds.
//
// After each round the validator signs the round's snapshot hash and wraps
// the signature in a StateSignatureTransaction. The surrounding node gossips
// the transaction back into the event stream as a system transaction, letting
// every participant collect signatures and detect divergence.
package signing
