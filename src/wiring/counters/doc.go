// Package counters provides the object counters that implement backpressure
// in the wiring model.
//
// A counter tracks the number of objects inside a domain: it is on-ramped
// when an object enters and off-ramped when the object leaves. Sharing one
// counter between the on-ramp of one scheduler and the off-ramp of another
// creates a joint capacity domain, so pressure on a downstream stage
// propagates upstream.
package counters
