package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
)

// ReadProgram returns a stored program with its instructions and diagnostics.
// Returns an error wrapping ErrNotFound if no program has the id.
func (s *Store) ReadProgram(ctx context.Context, id string) (ProgramRecord, error) {
	var rec ProgramRecord
	var problemJSON, blacklistJSON string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, problem_hash, problem, passes, blacklist, compiler_version, ir_version
		FROM programs
		WHERE id = ?
	`, id).Scan(
		&rec.ID,
		&rec.ProblemHash,
		&problemJSON,
		&rec.Passes,
		&blacklistJSON,
		&rec.CompilerVersion,
		&rec.IRVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("program %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("read program: %w", err)
	}

	if rec.Problem, err = unmarshalProblem(problemJSON); err != nil {
		return rec, fmt.Errorf("read program: %w", err)
	}
	if rec.Blacklist, err = unmarshalPoints(blacklistJSON); err != nil {
		return rec, fmt.Errorf("read program: %w", err)
	}
	if rec.Instructions, err = s.readInstructions(ctx, id); err != nil {
		return rec, err
	}
	if rec.Diagnostics, err = s.readDiagnostics(ctx, id); err != nil {
		return rec, err
	}
	return rec, nil
}

// readInstructions returns the instructions of a program ordered by seq.
func (s *Store) readInstructions(ctx context.Context, programID string) ([]InstructionRecord, error) {
	uses, err := s.readUses(ctx, programID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, op, point, text, payload
		FROM instructions
		WHERE program_id = ?
		ORDER BY seq ASC
	`, programID)
	if err != nil {
		return nil, fmt.Errorf("query instructions: %w", err)
	}
	defer rows.Close()

	instrs := []InstructionRecord{}
	for rows.Next() {
		var rec InstructionRecord
		var op, point string
		if err := rows.Scan(&rec.Seq, &op, &point, &rec.Text, &rec.Payload); err != nil {
			return nil, fmt.Errorf("scan instruction: %w", err)
		}
		rec.Op = ir.Opcode(op)
		rec.Point = ir.Point(point)
		rec.Uses = uses[rec.Seq]
		if rec.Uses == nil {
			rec.Uses = []int{}
		}
		instrs = append(instrs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instructions: %w", err)
	}
	return instrs, nil
}

// readUses returns consumed constraint indices keyed by instruction seq.
func (s *Store) readUses(ctx context.Context, programID string) (map[int][]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, constraint_index
		FROM instruction_uses
		WHERE program_id = ?
		ORDER BY seq ASC, constraint_index ASC
	`, programID)
	if err != nil {
		return nil, fmt.Errorf("query instruction uses: %w", err)
	}
	defer rows.Close()

	uses := make(map[int][]int)
	for rows.Next() {
		var seq, idx int
		if err := rows.Scan(&seq, &idx); err != nil {
			return nil, fmt.Errorf("scan instruction use: %w", err)
		}
		uses[seq] = append(uses[seq], idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instruction uses: %w", err)
	}
	return uses, nil
}

// readDiagnostics returns the diagnostics of a program ordered by seq.
func (s *Store) readDiagnostics(ctx context.Context, programID string) ([]compiler.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, pass, points, message
		FROM diagnostics
		WHERE program_id = ?
		ORDER BY seq ASC
	`, programID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []compiler.Diagnostic{}
	for rows.Next() {
		var d compiler.Diagnostic
		var kind, points string
		if err := rows.Scan(&kind, &d.Pass, &points, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Kind = compiler.DiagnosticKind(kind)
		if d.Points, err = unmarshalPoints(points); err != nil {
			return nil, err
		}
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return diags, nil
}

// ConsumersOf returns the seqs of the instructions in a program that used
// the constraint at index idx of the problem. A constraint is consumed by
// at most one placement, but a trailing assertion and its side conditions
// share a source, so several seqs may be returned.
func (s *Store) ConsumersOf(ctx context.Context, programID string, idx int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq
		FROM instruction_uses
		WHERE program_id = ? AND constraint_index = ?
		ORDER BY seq ASC
	`, programID, idx)
	if err != nil {
		return nil, fmt.Errorf("query consumers: %w", err)
	}
	defer rows.Close()

	seqs := []int{}
	for rows.Next() {
		var seq int
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("scan consumer: %w", err)
		}
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consumers: %w", err)
	}
	return seqs, nil
}

const runColumns = `seq, id, problem_hash, problem_name, program_id, status, error_code, error_message`

// ReadRun returns a run by id.
// Returns an error wrapping ErrNotFound if no run has the id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns every run ordered by seq.
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC, id COLLATE BINARY ASC`)
}

// RunsForProblem returns the runs of one problem ordered by seq.
func (s *Store) RunsForProblem(ctx context.Context, problemHash string) ([]Run, error) {
	return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs WHERE problem_hash = ? ORDER BY seq ASC, id COLLATE BINARY ASC`, problemHash)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var programID sql.NullString
	var status string
	err := row.Scan(
		&run.Seq,
		&run.ID,
		&run.ProblemHash,
		&run.ProblemName,
		&programID,
		&status,
		&run.ErrorCode,
		&run.ErrorMessage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("scan run: %w", err)
	}
	run.ProgramID = programID.String
	run.Status = RunStatus(status)
	return run, nil
}
