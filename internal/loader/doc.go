// Package loader reads geometry problems written in CUE.
//
// A problem directory holds one or more .cue files that together declare
// problems under the top-level "problem" struct:
//
//	problem: midpoint: {
//		sample: ["A", "B"]
//		solve:  ["D"]
//		constraints: [
//			{pred: "midp", points: ["D", "A", "B"]},
//		]
//	}
//
// LoadProblems turns those declarations into ir.Problem values in
// declaration order. Validate performs the structural checks the compiler
// relies on: a closed predicate vocabulary, arities, and point bookkeeping.
package loader
