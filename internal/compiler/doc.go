// Package compiler lowers geometric constraints into construction
// instructions.
//
// For each point to solve, in the given order, the compiler snapshots the
// constraints whose other operands are already placed, runs the strategy
// chain, and applies the first strategy that succeeds: it emits one
// instruction and consumes the constraints that instruction satisfies.
//
// STRATEGY CHAIN (priority order):
//  1. named centers: circumcenter, orthocenter, midp, incenter,
//     mixtilinearIncenter
//  2. explicit interLL
//  3. curve intersection over coll-derived lines and cycl-derived circles
//  4. onSeg
//  5. onLine
//  6. onCirc
//  7. free coordinates (always succeeds, warns)
//
// ROOT RESOLUTION:
// Line/circle and circle/circle meets have two solutions. An intersection
// with nothing to disambiguate it gets an arbitrary root, registered as
// open on its curve pair. A later point on the same pair takes the other
// root and closes the entry. A pass that ends with open entries failed:
// their holders are blacklisted and the whole pass is restarted from a
// fresh copy of the problem. Blacklisted points may not take arbitrary
// roots, so the blacklist grows every restart and compilation terminates.
//
// Constraints left in the pool at the end become trailing Assert
// instructions, followed by their NDG and ordering conditions.
package compiler
