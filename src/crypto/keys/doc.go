// Package keys implements the public key cryptography used by the consensus
// core.
//
// A validator owns a key-pair that it uses to sign its events and its state
// signatures. The private key is secret but the public key is known to other
// validators, who use it to verify signed material.
//
// We use elliptic curve cryptography (ECDSA) with the secp256k1 curve because
// it is also used by Bitcoin and Ethereum, which means existing Bitcoin and
// Ethereum keys can be reused here.
package keys
