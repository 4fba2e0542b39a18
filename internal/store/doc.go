// Package store provides SQLite-backed storage for compiled programs.
//
// The store keeps:
//   - Programs: content-addressed compile results (id = ir.ProgramID)
//   - Instructions: the ordered instruction list of each program
//   - Instruction uses: which input constraints each instruction consumed
//   - Diagnostics: restart and free-coordinate warnings of each program
//   - Runs: one row per compile attempt, successful or not
//
// Programs are immutable. Writing a program whose id already exists is a
// no-op, so recompiling an unchanged problem only appends a run.
//
// All reads are ordered by seq, never by wall time, so listings are
// identical across machines.
//
// # Connections
//
// A Store owns a single connection with foreign keys enforced, so an
// instruction_uses row can never outlive its program. Concurrent CLI
// invocations against one file wait on the SQLite busy timeout. The schema
// version lives in PRAGMA user_version and Open applies pending migrations
// in order.
package store
