package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/tsq/internal/engine"
	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/keypath"
	"github.com/roach88/tsq/internal/predicate"
	"github.com/roach88/tsq/internal/query"
	"github.com/roach88/tsq/internal/schema"
	"github.com/roach88/tsq/internal/store"
	"github.com/roach88/tsq/internal/testutil"
)

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger for the run. Default: a logger that discards
// everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Harness runs scenarios against an in-memory store with deterministic
// object ids.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	compiler *predicate.Compiler
	resolver *keypath.Resolver
	ids      *testutil.SequentialIDs
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Load and validate the schema
//  2. Store the objects
//  3. For each query: build, compile, execute, check expectations
//
// An error is returned only when the scenario cannot be set up; query
// failures are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		ids:    testutil.NewSequentialIDs("obj"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	s, err := loadSchema(scenario.Schema)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:", store.WithSchema(s), store.WithIDGenerator(h.ids))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h.store = st
	h.engine = engine.New(st, engine.WithLogger(h.logger))
	h.compiler = predicate.NewCompiler(predicate.WithLogger(h.logger))
	h.resolver = keypath.NewResolver(s)

	if err := h.storeObjects(ctx, s, scenario.Objects); err != nil {
		return nil, fmt.Errorf("failed to store objects: %w", err)
	}

	result := NewResult(scenario.Name)
	for _, q := range scenario.Queries {
		qr := h.runQuery(ctx, q)
		h.logger.Info("query checked",
			"scenario", scenario.Name,
			"query", q.Name,
			"pass", qr.Pass,
			"matched", len(qr.Results),
		)
		result.Add(qr)
	}
	return result, nil
}

// RunFile loads and runs the scenario at path.
func RunFile(ctx context.Context, path string, opts ...Option) (*Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return Run(ctx, scenario, opts...)
}

func loadSchema(path string) (*schema.Schema, error) {
	s, err := schema.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	var merr *multierror.Error
	for _, verr := range schema.Validate(s) {
		merr = multierror.Append(merr, verr)
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return s, nil
}

func (h *Harness) storeObjects(ctx context.Context, s *schema.Schema, specs []ObjectSpec) error {
	objs := make([]*engine.Object, 0, len(specs))
	for i, spec := range specs {
		fields, err := s.CoerceObject(spec.Type, spec.Fields)
		if err != nil {
			return fmt.Errorf("objects[%d]: %w", i, err)
		}
		objs = append(objs, &engine.Object{Type: spec.Type, ID: spec.ID, Fields: fields})
	}
	return h.store.PutAll(ctx, objs)
}

func (h *Harness) runQuery(ctx context.Context, q QuerySpec) QueryResult {
	qr := QueryResult{Name: q.Name, Pass: true, Results: []string{}}
	expect := q.Expect

	ids, err := h.execute(ctx, q, &qr)
	if err != nil {
		qr.Error = err.Error()
	}

	if expect.Error != "" {
		if aerr := assertError(expect.Error, err); aerr != nil {
			qr.addError(aerr.Error())
		}
	} else if err != nil {
		qr.addError(fmt.Sprintf("unexpected error: %v", err))
	}

	// Predicate and args are checked even when execution failed after
	// compiling.
	if expect.Predicate != "" && qr.Predicate != "" {
		if aerr := assertPredicate(expect.Predicate, qr.Predicate); aerr != nil {
			qr.addError(aerr.Error())
		}
	}
	if expect.Args != nil && qr.Predicate != "" {
		if aerr := assertArgs(expect.Args, qr.Args); aerr != nil {
			qr.addError(aerr.Error())
		}
	}
	if err == nil {
		qr.Results = ids
		if expect.Results != nil {
			if aerr := assertResults(expect.Results, ids); aerr != nil {
				qr.addError(aerr.Error())
			}
		}
	}
	return qr
}

// execute builds, compiles and runs q, filling in the compiled form on qr.
func (h *Harness) execute(ctx context.Context, q QuerySpec, qr *QueryResult) ([]string, error) {
	b := query.NewBuilder(h.resolver, q.Root)
	compiled, err := h.compiler.Compile(q.Where.Build(b))
	if err != nil {
		return nil, err
	}

	qr.Predicate = compiled.Format
	qr.Args = formatArgs(compiled.Args)
	if hash, err := compiled.Hash(); err == nil {
		qr.Hash = hash
	}

	return h.engine.ExecuteCompiled(ctx, compiled, q.Root)
}

func formatArgs(args []ir.Value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = ir.Format(a)
	}
	return out
}
