// Package wiring is a typed concurrency substrate. Named task schedulers are
// connected by input and output wires: an input wire binds a handler, an
// output wire is soldered to downstream input wires, and data forwarded
// between schedulers crosses backpressure domains defined by object counters.
//
// Scheduler variants cover the execution policies the pipeline needs: direct
// execution on the caller's goroutine, single-goroutine FIFO stages for
// order-sensitive work, a shared worker pool for parallel work, and a no-op
// variant for disabled stages. Schedulers are built once through
// TaskSchedulerBuilder, registered with a WiringModel, and run until the
// model is stopped.
package wiring
