// Package harness runs conformance scenarios against the compiler.
//
// A scenario is a YAML document holding one problem and what compiling it
// must produce:
//
//	name: midpoint
//	description: midp places the point directly
//	problem:
//	  sample: [A, B]
//	  solve: [D]
//	  constraints:
//	    - {pred: midp, points: [D, A, B]}
//	expect:
//	  instructions:
//	    - "Compute(D, [midp, [A,B]])"
//	  passes: 1
//
// The problem may instead be given as CUE source under "cue", in the same
// form the loader reads from problem directories.
//
// Each run compiles into a fresh in-memory store with a fixed run token, so
// final_state assertions can inspect the rows a real compile would write
// and golden snapshots are byte-stable.
package harness
