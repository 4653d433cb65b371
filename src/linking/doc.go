// Package linking resolves parent descriptors into live graph pointers.
//
// Events come out of the orphan buffer carrying parent references as
// descriptors. A linker turns those references into pointers to previously
// linked events so that downstream consumers can walk the DAG directly. A
// parent that is ancient, or that the linker has never seen, is linked as nil;
// the child proceeds without it.
package linking
