package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
)

// WriteProgram stores a compiled program and returns its content-addressed id.
//
// Uses ON CONFLICT(id) DO NOTHING: a program with the same id is already
// stored with identical contents, so instructions and diagnostics are only
// written on first insert. The whole write happens in one transaction.
func (s *Store) WriteProgram(ctx context.Context, problem ir.Problem, prog *compiler.Program) (string, error) {
	problemHash, err := ir.ProblemHash(problem)
	if err != nil {
		return "", fmt.Errorf("write program: %w", err)
	}
	id, err := ir.ProgramID(problemHash, prog.Instructions)
	if err != nil {
		return "", fmt.Errorf("write program: %w", err)
	}
	problemJSON, err := marshalProblem(problem)
	if err != nil {
		return "", fmt.Errorf("write program: %w", err)
	}
	blacklistJSON, err := marshalPoints(prog.Blacklist)
	if err != nil {
		return "", fmt.Errorf("write program: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write program: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO programs
		(id, problem_hash, problem_name, problem, passes, blacklist, compiler_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		problemHash,
		problem.Name,
		problemJSON,
		prog.Passes,
		blacklistJSON,
		ir.CompilerVersion,
		ir.IRVersion,
	)
	if err != nil {
		return "", fmt.Errorf("write program: insert program: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("write program: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("write program: commit (existing): %w", err)
		}
		return id, nil
	}

	for seq, in := range prog.Instructions {
		if err := writeInstruction(ctx, tx, id, seq, in); err != nil {
			return "", fmt.Errorf("write program: %w", err)
		}
	}
	for seq, d := range prog.Diagnostics {
		if err := writeDiagnostic(ctx, tx, id, seq, d); err != nil {
			return "", fmt.Errorf("write program: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write program: commit: %w", err)
	}
	return id, nil
}

func writeInstruction(ctx context.Context, tx *sql.Tx, programID string, seq int, in ir.Instruction) error {
	payload, err := in.MarshalJSON()
	if err != nil {
		return fmt.Errorf("instruction %d: %w", seq, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO instructions (program_id, seq, op, point, text, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`, programID, seq, string(in.Op), string(in.Point), in.String(), string(payload))
	if err != nil {
		return fmt.Errorf("instruction %d: %w", seq, err)
	}

	for _, idx := range in.Uses {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO instruction_uses (program_id, seq, constraint_index)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, programID, seq, idx)
		if err != nil {
			return fmt.Errorf("instruction %d uses: %w", seq, err)
		}
	}
	return nil
}

func writeDiagnostic(ctx context.Context, tx *sql.Tx, programID string, seq int, d compiler.Diagnostic) error {
	points, err := marshalPoints(d.Points)
	if err != nil {
		return fmt.Errorf("diagnostic %d: %w", seq, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO diagnostics (program_id, seq, kind, pass, points, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, programID, seq, string(d.Kind), d.Pass, points, d.Message)
	if err != nil {
		return fmt.Errorf("diagnostic %d: %w", seq, err)
	}
	return nil
}

// WriteRun appends a run record and returns its seq.
// Uses ON CONFLICT(id) DO NOTHING; a duplicate run id returns the seq of the
// existing row.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	var programID sql.NullString
	if run.ProgramID != "" {
		programID = sql.NullString{String: run.ProgramID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, problem_hash, problem_name, program_id, status, error_code, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ProblemHash,
		run.ProblemName,
		programID,
		string(run.Status),
		run.ErrorCode,
		run.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: select seq: %w", err)
	}
	return seq, nil
}

// Record stores the outcome of one compile: the program when prog is
// non-nil, and a run row either way. compileErr is recorded on the run;
// a *compiler.CompileError contributes its code.
func (s *Store) Record(ctx context.Context, gen TokenGenerator, problem ir.Problem, prog *compiler.Program, compileErr error) (Run, error) {
	problemHash, err := ir.ProblemHash(problem)
	if err != nil {
		return Run{}, fmt.Errorf("record: %w", err)
	}

	run := Run{
		ID:          gen.Generate(),
		ProblemHash: problemHash,
		ProblemName: problem.Name,
		Status:      RunOK,
	}

	switch {
	case compileErr != nil:
		run.Status = RunFailed
		run.ErrorMessage = compileErr.Error()
		run.ErrorCode = "ERROR"
		var ce *compiler.CompileError
		if errors.As(compileErr, &ce) {
			run.ErrorCode = string(ce.Code)
		}
	case prog != nil:
		id, err := s.WriteProgram(ctx, problem, prog)
		if err != nil {
			return Run{}, fmt.Errorf("record: %w", err)
		}
		run.ProgramID = id
	default:
		return Run{}, fmt.Errorf("record: neither program nor error given")
	}

	seq, err := s.WriteRun(ctx, run)
	if err != nil {
		return Run{}, fmt.Errorf("record: %w", err)
	}
	run.Seq = seq
	return run, nil
}
