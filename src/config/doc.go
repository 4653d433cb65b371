// Package config defines the configuration for an eventflow node.
//
// Regardless of how eventflow is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// configuration options, eventflow relies on a data directory, defined by
// Config.DataDir, where it expects to find a few additional files:
//
//	priv_key   // a plain text file containing the raw private key (cf. eventflow keygen).
//	peers.json // a JSON file containing the current list of peers.
package config
