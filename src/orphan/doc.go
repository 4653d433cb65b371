// Package orphan buffers events whose parents have not arrived yet.
//
// Gossip does not guarantee delivery order, so an event may reach the intake
// pipeline before its parents. The OrphanBuffer holds such events and releases
// them topologically once every missing parent has either arrived or become
// ancient. An ancient missing parent counts as satisfied; the child proceeds
// without ever seeing it.
package orphan
