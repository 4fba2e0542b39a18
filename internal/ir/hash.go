package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainProblem = "ruler/problem/v1"
	DomainProgram = "ruler/program/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProblemHash computes the content-addressed identity of a problem.
func ProblemHash(p Problem) (string, error) {
	canonical, err := MarshalCanonical(p.Canonical())
	if err != nil {
		return "", fmt.Errorf("ProblemHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProblem, canonical), nil
}

// ProgramID computes the content-addressed identity of a compiled program.
// The compiler is deterministic, so recompiling an unchanged problem with
// the same compiler version yields the same ID.
func ProgramID(problemHash string, instrs []Instruction) (string, error) {
	list := make([]any, len(instrs))
	for i, in := range instrs {
		list[i] = in.Canonical()
	}
	obj := map[string]any{
		"problem_hash":     problemHash,
		"compiler_version": CompilerVersion,
		"instructions":     list,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ProgramID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// MustProblemHash is like ProblemHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustProblemHash(p Problem) string {
	h, err := ProblemHash(p)
	if err != nil {
		panic(err)
	}
	return h
}
