package compiler

import (
	"fmt"

	"github.com/roach88/ruler/internal/ir"
)

// Verify checks definition-before-use: every Compute or Parameterize
// instruction references only sample points or points defined by a
// strictly earlier instruction, and no point is defined twice.
func Verify(sample []ir.Point, instrs []ir.Instruction) error {
	defined := make(map[ir.Point]bool, len(sample)+len(instrs))
	for _, p := range sample {
		defined[p] = true
	}
	for i, in := range instrs {
		if !in.Defines() {
			continue
		}
		for _, ref := range in.Refs() {
			if !defined[ref] {
				return NewInvariantError(in.Point,
					fmt.Sprintf("instruction %d (%s) uses %s before it is defined", i, in, ref))
			}
		}
		if defined[in.Point] {
			return NewInvariantError(in.Point, fmt.Sprintf("instruction %d redefines the point", i))
		}
		defined[in.Point] = true
	}
	return nil
}
