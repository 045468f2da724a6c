package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/tsq/internal/ir"
	"github.com/roach88/tsq/internal/predicate"
)

// Engine evaluates predicates against the objects of a Source.
//
// Execution is read-only and deterministic: results follow the Source's
// insertion order, and the same predicate, arguments and data always yield
// the same ids.
type Engine struct {
	source   Source
	logger   *slog.Logger
	maxSteps int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the logger per-execution summaries are written to at
// debug level. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMaxSteps limits the comparisons one execution may evaluate; see
// QuotaEnforcer. n <= 0 removes the limit. Default: DefaultMaxSteps.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// New creates an Engine reading from src.
func New(src Source, opts ...EngineOption) *Engine {
	e := &Engine{
		source:   src,
		logger:   slog.Default(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute parses format, binds args, and returns the ids of the root
// objects the predicate matches.
//
// Returns a ParseError when format is malformed or its placeholder count
// differs from len(args), and an EvalError when it cannot be evaluated
// against some object. ctx is checked between objects. An execution that
// exceeds the step quota returns a StepsExceededError.
func (e *Engine) Execute(ctx context.Context, format string, args []ir.Value, root string) ([]string, error) {
	p, err := Parse(format, args)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, p, root)
}

// ExecuteCompiled executes a compiled predicate.
func (e *Engine) ExecuteCompiled(ctx context.Context, p predicate.CompiledPredicate, root string) ([]string, error) {
	return e.Execute(ctx, p.Format, p.Args, root)
}

// Run evaluates a parsed predicate against every root object.
func (e *Engine) Run(ctx context.Context, p *Predicate, root string) ([]string, error) {
	start := time.Now()

	objects, err := e.source.Objects(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("read %s objects: %w", root, err)
	}
	slices.SortStableFunc(objects, func(a, b Object) int { return cmp.Compare(a.Seq, b.Seq) })

	ev := newEvaluator(ctx, e.source, root, e.maxSteps)
	ids := []string{}
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := ev.match(p, obj)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, obj.ID)
		}
	}

	e.logger.Debug("predicate executed",
		"root", root,
		"format", p.format,
		"scanned", len(objects),
		"matched", len(ids),
		"steps", ev.quota.Current(),
		"duration", time.Since(start),
	)
	return ids, nil
}

// Match reports whether obj satisfies p. Links are resolved through the
// engine's Source.
func (e *Engine) Match(ctx context.Context, p *Predicate, obj Object) (bool, error) {
	return newEvaluator(ctx, e.source, obj.Type, e.maxSteps).match(p, obj)
}

func (ev *evaluator) match(p *Predicate, obj Object) (bool, error) {
	ok, err := p.root.eval(ev, &scope{root: obj.Fields})
	if err != nil {
		var ee *EvalError
		if errors.As(err, &ee) && ee.ObjectID == "" {
			ee.ObjectID = obj.ID
		}
		return false, fmt.Errorf("evaluate %s: %w", obj.Type, err)
	}
	return ok, nil
}
