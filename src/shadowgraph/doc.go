// Package shadowgraph maintains the mutable DAG index over linked events.
//
// Every linked event is wrapped in a ShadowEvent carrying adjacency links in
// both directions, which gives the consensus engine O(1) insertion and cheap
// reachability queries. Shadows below the expired threshold are removed in
// bulk when the event window advances; removal severs all pointers so the
// garbage collector can reclaim the subgraph.
package shadowgraph
