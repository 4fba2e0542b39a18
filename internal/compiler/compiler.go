package compiler

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/ruler/internal/ir"
)

// DiagnosticKind categorizes compiler diagnostics.
type DiagnosticKind string

const (
	// DiagRestart is emitted when a pass ends with open roots and the
	// compiler restarts with a larger blacklist.
	DiagRestart DiagnosticKind = "restart"

	// DiagUnderconstrained is emitted when a point falls back to free
	// coordinates.
	DiagUnderconstrained DiagnosticKind = "underconstrained"
)

// Diagnostic is a warning surfaced alongside a successful compile.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Pass    int            `json:"pass"`
	Points  []ir.Point     `json:"points"`
	Message string         `json:"message"`
}

// Program is the result of a successful compile.
type Program struct {
	Problem      string           `json:"problem"`
	Instructions []ir.Instruction `json:"instructions"`
	Passes       int              `json:"passes"`
	Blacklist    []ir.Point       `json:"blacklist"`
	Diagnostics  []Diagnostic     `json:"diagnostics"`
}

// Compiler lowers a problem into a construction program.
//
// The compiler is single-threaded and deterministic: identical problems
// produce identical programs. A Compiler holds configuration only, so one
// value may be reused across problems and goroutines.
type Compiler struct {
	strategies []Strategy
	maxPasses  int
	logger     *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithMaxPasses caps the number of passes, restarts included.
//
// Default: len(problem.Solve)+1. Each restart blacklists at least one new
// solve point, so the default is never the binding limit for a problem
// whose restarts make progress.
func WithMaxPasses(n int) Option {
	return func(c *Compiler) {
		c.maxPasses = n
	}
}

// WithLogger sets the logger for diagnostics. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// New creates a Compiler with the default strategy chain.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		strategies: DefaultStrategies(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Compile is shorthand for New().Compile(p).
func Compile(p ir.Problem) (*Program, error) {
	return New().Compile(p)
}

// Compile runs passes until one finishes with no open roots.
//
// Each pass starts from a fresh copy of the problem; only the blacklist is
// carried forward. A pass that leaves open roots blacklists their holders
// and triggers a restart. Exceeding the pass ceiling is a RESTART_LIMIT
// error naming the blacklist and the still-open curve pairs.
func (c *Compiler) Compile(p ir.Problem) (*Program, error) {
	maxPasses := c.maxPasses
	if maxPasses <= 0 {
		maxPasses = len(p.Solve) + 1
	}

	blacklist := &Blacklist{}
	var diags []Diagnostic
	var lastOpen []ir.CurvePair

	for n := 1; ; n++ {
		if n > maxPasses {
			return nil, NewRestartLimitError(maxPasses, blacklist.Points(), lastOpen)
		}

		st := newPassState(n, p, blacklist)
		if err := st.run(c.strategies, c.logger); err != nil {
			return nil, err
		}

		keys, holders := st.roots.pending()
		if len(keys) == 0 {
			return c.finish(p, st, blacklist, append(diags, st.diags...))
		}

		lastOpen = keys
		if blacklist.Add(holders...) == 0 {
			return nil, NewStalledError(blacklist.Points(), keys)
		}

		c.logger.Warn("root blacklist",
			"pass", n,
			"points", pointNames(blacklist.Points()),
		)
		diags = append(diags, Diagnostic{
			Kind:    DiagRestart,
			Pass:    n,
			Points:  blacklist.Points(),
			Message: fmt.Sprintf("root blacklist: %v", pointNames(blacklist.Points())),
		})
	}
}

// finish appends trailing assertions and verifies the program.
func (c *Compiler) finish(p ir.Problem, st *passState, blacklist *Blacklist, diags []Diagnostic) (*Program, error) {
	instrs := st.instrs
	for _, e := range st.pool.Remaining() {
		instrs = append(instrs, ir.Assert(e.Constraint, e.ID))
		for _, ndg := range e.Constraint.NDGs {
			instrs = append(instrs, ir.AssertNDG(ndg, e.ID))
		}
		for _, ord := range e.Constraint.Orders {
			instrs = append(instrs, ir.Assert(ord, e.ID))
		}
	}

	if err := Verify(p.Sample, instrs); err != nil {
		return nil, err
	}

	if diags == nil {
		diags = []Diagnostic{}
	}
	bl := blacklist.Points()
	if bl == nil {
		bl = []ir.Point{}
	}
	return &Program{
		Problem:      p.Name,
		Instructions: instrs,
		Passes:       st.number,
		Blacklist:    bl,
		Diagnostics:  diags,
	}, nil
}

// passState is the mutable state of one pass. A restart discards it and
// builds a new one; nothing here survives except through the blacklist.
type passState struct {
	number    int
	queue     []ir.Point
	visited   map[ir.Point]bool
	pool      *Pool
	roots     *rootResolver
	incidence incidence
	instrs    []ir.Instruction
	diags     []Diagnostic
}

func newPassState(n int, p ir.Problem, blacklist *Blacklist) *passState {
	visited := make(map[ir.Point]bool, len(p.Sample)+len(p.Solve))
	for _, q := range p.Sample {
		visited[q] = true
	}
	return &passState{
		number:    n,
		queue:     slices.Clone(p.Solve),
		visited:   visited,
		pool:      NewPool(p.Constraints),
		roots:     newRootResolver(blacklist),
		incidence: make(incidence),
	}
}

// run pops points until the queue is empty.
func (st *passState) run(strategies []Strategy, logger *slog.Logger) error {
	for len(st.queue) > 0 {
		p := st.queue[0]
		st.queue = st.queue[1:]
		if err := st.place(p, strategies, logger); err != nil {
			return err
		}
	}
	return nil
}

// place runs the strategy chain for p and applies the first success.
// The applicable snapshot is taken before any strategy runs; the pool is
// only mutated after the winning strategy returns.
func (st *passState) place(p ir.Point, strategies []Strategy, logger *slog.Logger) error {
	applicable := st.pool.Applicable(p, st.visited)

	for _, s := range strategies {
		out, ok := s.Attempt(p, applicable, st)
		if !ok {
			continue
		}
		if err := st.pool.Consume(out.Consumed...); err != nil {
			return NewInvariantError(p, fmt.Sprintf("strategy %s: %v", s.Name(), err))
		}
		st.incidence.record(p, out.Curves...)
		st.instrs = append(st.instrs, out.Instruction)
		st.visited[p] = true

		if out.Underconstrained {
			logger.Warn("point parameterized by coordinates", "point", string(p), "pass", st.number)
			st.diags = append(st.diags, Diagnostic{
				Kind:    DiagUnderconstrained,
				Pass:    st.number,
				Points:  []ir.Point{p},
				Message: fmt.Sprintf("point is parameterized by its coordinates: %s", p),
			})
		}
		logger.Debug("point placed",
			"point", string(p),
			"strategy", s.Name(),
			"instruction", out.Instruction.String(),
			"pass", st.number,
		)
		return nil
	}

	return NewInvariantError(p, "no strategy applies")
}

func pointNames(points []ir.Point) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = string(p)
	}
	return out
}
